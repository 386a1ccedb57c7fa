// Package xor implements a trivial engine where each party contributes 32
// random bytes and all parties output the XOR of the contributions. It is the
// smallest possible example of a round based protocol.
package xor

import (
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
)

const (
	protocolID                  = "example/xor"
	protocolRounds round.Number = 2
)

// Result is the XOR of all parties' contributions.
type Result []byte

// StartXOR creates the first round with all necessary information to create a
// protocol.Handler.
func StartXOR(selfID party.ID, partyIDs party.IDSlice) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: protocolRounds,
			SelfID:           selfID,
			PartyIDs:         partyIDs,
		}
		helper, err := round.NewSession(info, sessionID)
		if err != nil {
			return nil, fmt.Errorf("xor: %w", err)
		}
		return &round1{Helper: helper}, nil
	}
}
