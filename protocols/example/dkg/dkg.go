// Package dkg implements a distributed key generation engine based on
// Feldman verifiable secret sharing.
//
// Each party samples a random polynomial of degree t, broadcasts commitments
// to its coefficients, and sends every other party its evaluation of the
// polynomial. Shares are verified against the commitments, so a party sending
// an inconsistent share is identified and the protocol aborts naming it. The
// sum of the received shares is this party's share of the joint key, whose
// public key is the sum of the constant term commitments.
package dkg

import (
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
)

const (
	protocolID                  = "example/dkg"
	protocolRounds round.Number = 3
)

// StartKeygen creates the first round of the key generation. All parties in
// partyIDs must participate, and threshold is the maximum number of parties
// assumed corrupted, so that threshold+1 shares reconstruct the key.
func StartKeygen(selfID party.ID, partyIDs party.IDSlice, threshold int) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: protocolRounds,
			SelfID:           selfID,
			PartyIDs:         partyIDs,
			Threshold:        threshold,
		}
		helper, err := round.NewSession(info, sessionID)
		if err != nil {
			return nil, fmt.Errorf("dkg: %w", err)
		}
		if threshold < 1 {
			return nil, fmt.Errorf("dkg: threshold %d must be at least 1", threshold)
		}
		return &round1{Helper: helper}, nil
	}
}

// evaluateExponent evaluates the polynomial whose coefficients are committed
// to in commitments at the point x, in the exponent, using Horner's rule.
func evaluateExponent(commitments []*curve.Point, x *curve.Scalar) *curve.Point {
	result := curve.NewIdentityPoint()
	for k := len(commitments) - 1; k >= 0; k-- {
		result = x.Act(result)
		result.Add(result, commitments[k])
	}
	return result
}
