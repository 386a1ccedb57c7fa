package round

import "github.com/taurusgroup/mpc-client/pkg/party"

// Content represents the message body, either broadcast or P2P, produced by a
// round during finalization.
type Content interface {
	RoundNumber() Number
}

// Message is an engine-level message exchanged between rounds. The handler
// takes care of marshalling it to and from the wire envelope.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Content   Content
}
