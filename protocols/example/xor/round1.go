package xor

import (
	"crypto/rand"

	"github.com/taurusgroup/mpc-client/internal/round"
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

// Finalize samples this party's contribution and broadcasts it.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	contribution := make([]byte, 32)
	if _, err := rand.Read(contribution); err != nil {
		// not an abort, we simply failed to read randomness locally
		return r, err
	}
	if err := r.BroadcastMessage(out, &message2{Contribution: contribution}); err != nil {
		return r, err
	}
	return &round2{
		round1:   r,
		received: map[party.ID][]byte{r.SelfID(): contribution},
	}, nil
}

// MessageContent returns nil, indicating that no message is expected.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
