package protocol

import (
	"sort"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// queue buffers messages by round so that out of order delivery across rounds
// is tolerated. A (round, sender) pair is stored at most once.
type queue struct {
	messages []*Message
}

// Store adds msg to the queue, rejecting duplicates for the same
// (round, sender) pair.
func (q *queue) Store(msg *Message) error {
	for _, existing := range q.messages {
		if existing.From == msg.From && existing.RoundNumber == msg.RoundNumber {
			return ErrDuplicate
		}
	}
	q.messages = append(q.messages, msg)
	return nil
}

// Has reports whether a message from the given (round, sender) pair is buffered.
func (q *queue) Has(number round.Number, from party.ID) bool {
	for _, existing := range q.messages {
		if existing.From == from && existing.RoundNumber == number {
			return true
		}
	}
	return false
}

// Get removes and returns all messages for the given round, sorted by
// ascending sender party number.
func (q *queue) Get(number round.Number) []*Message {
	var out, rest []*Message
	for _, msg := range q.messages {
		if msg.RoundNumber == number {
			out = append(out, msg)
		} else {
			rest = append(rest, msg)
		}
	}
	q.messages = rest
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}
