package sign

import (
	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

type round1 struct {
	*round.Helper

	key     *ecdsa.LocalKey
	message []byte
}

// VerifyMessage does nothing since no messages are expected in the first
// round.
func (r *round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage does nothing since no messages are expected.
func (r *round1) StoreMessage(round.Message) error { return nil }

// Finalize reveals this party's key share to the other signers.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	if err := r.BroadcastMessage(out, &message2{Share: r.key.Share}); err != nil {
		return r, err
	}
	return &round2{
		round1: r,
		shares: map[party.ID]*curve.Scalar{r.SelfID(): r.key.Share},
	}, nil
}

// MessageContent returns nil, indicating that no message is expected.
func (round1) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1) Number() round.Number { return 1 }
