// Package sign implements a signing engine that reconstructs the joint
// private key from revealed shares and signs with it.
//
// Each signer broadcasts its key share, verifies the others' shares against
// the public shares recorded at key generation, and interpolates the shares
// at zero with Lagrange coefficients to recover the full key. Every signer
// therefore learns the key: this engine demonstrates the signing flow, it
// does not protect the key.
package sign

import (
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/hash"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
)

const (
	protocolID                  = "example/sign"
	protocolRounds round.Number = 2
)

// StartSign creates the first round of the signing protocol. signers must
// contain this party and at least threshold+1 parties from the key's group.
func StartSign(key *ecdsa.LocalKey, signers party.IDSlice, message []byte) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}
		if len(message) == 0 {
			return nil, fmt.Errorf("sign: message is empty")
		}
		signerIDs := party.NewIDSlice(signers)
		if len(signerIDs) < key.Threshold+1 {
			return nil, fmt.Errorf("sign: %d signers cannot meet threshold %d", len(signerIDs), key.Threshold)
		}
		for _, id := range signerIDs {
			if !key.PartyIDs.Contains(id) {
				return nil, fmt.Errorf("sign: party %d is not part of the key's group", id)
			}
		}
		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: protocolRounds,
			SelfID:           key.I,
			PartyIDs:         signerIDs,
			Threshold:        len(signerIDs) - 1,
		}
		helper, err := round.NewSession(info, sessionID,
			hash.BytesWithDomain{TheDomain: "Signed Message", Bytes: message})
		if err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}
		return &round1{Helper: helper, key: key, message: message}, nil
	}
}
