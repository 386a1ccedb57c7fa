package dkg

import (
	"crypto/rand"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

type round1 struct {
	*round.Helper
}

// VerifyMessage does nothing since no messages are expected in the first
// round.
func (r *round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage does nothing since no messages are expected.
func (r *round1) StoreMessage(round.Message) error { return nil }

// Finalize samples this party's secret polynomial and broadcasts the Feldman
// commitments to its coefficients.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	secret, err := newPolynomial(rand.Reader, r.Threshold())
	if err != nil {
		return r, err
	}
	commitments := secret.commitments()
	if err := r.BroadcastMessage(out, &message2{Commitments: commitments}); err != nil {
		return r, err
	}
	return &round2{
		round1: r,
		secret: secret,
		commitments: map[party.ID][]*curve.Point{
			r.SelfID(): commitments,
		},
	}, nil
}

// MessageContent returns nil, indicating that no message is expected.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
