package xor

import (
	"errors"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// round2 embeds round1 so that it has access to previous information.
type round2 struct {
	*round1

	// received holds the contributions indexed by sender, including our own.
	received map[party.ID][]byte
}

// message2 is the message sent in round 1 and received in round 2.
type message2 struct {
	Contribution []byte `cbor:"contribution"`
}

// VerifyMessage checks that the contribution has the right length.
func (r *round2) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if len(body.Contribution) != 32 {
		return errors.New("contribution should be 32 bytes long")
	}
	return nil
}

// StoreMessage saves the sender's contribution.
func (r *round2) StoreMessage(msg round.Message) error {
	r.received[msg.From] = msg.Content.(*message2).Contribution
	return nil
}

// Finalize computes the XOR of all contributions.
func (r *round2) Finalize(chan<- *round.Message) (round.Session, error) {
	result := make(Result, 32)
	for _, contribution := range r.received {
		for i := range result {
			result[i] ^= contribution[i]
		}
	}
	return r.ResultRound(result), nil
}

// RoundNumber implements round.Content.
func (message2) RoundNumber() round.Number { return 2 }

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return &message2{} }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
