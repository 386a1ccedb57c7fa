package dkg

import (
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

type round2 struct {
	*round1

	// secret is this party's polynomial, of degree Threshold().
	secret *polynomial
	// commitments holds the coefficient commitments of every party.
	commitments map[party.ID][]*curve.Point
}

// message2 carries the Feldman commitments broadcast after round 1.
type message2 struct {
	Commitments []*curve.Point `cbor:"commitments"`
}

// VerifyMessage checks that the sender committed to a polynomial of the
// agreed degree.
func (r *round2) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if len(body.Commitments) != r.Threshold()+1 {
		return fmt.Errorf("expected %d commitments, got %d", r.Threshold()+1, len(body.Commitments))
	}
	for _, c := range body.Commitments {
		if c == nil {
			return round.ErrInvalidContent
		}
	}
	return nil
}

// StoreMessage saves the sender's commitments.
func (r *round2) StoreMessage(msg round.Message) error {
	r.commitments[msg.From] = msg.Content.(*message2).Commitments
	return nil
}

// Finalize sends every other party its evaluation of our secret polynomial.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	for _, j := range r.OtherPartyIDs() {
		share := r.secret.evaluate(curve.FromID(j))
		if err := r.SendMessage(out, &message3{Share: share}, j); err != nil {
			return r, err
		}
	}
	return &round3{
		round2: r,
		share:  r.secret.evaluate(curve.FromID(r.SelfID())),
	}, nil
}

// RoundNumber implements round.Content.
func (message2) RoundNumber() round.Number { return 2 }

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return &message2{} }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
