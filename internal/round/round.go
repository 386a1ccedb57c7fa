package round

import (
	"errors"

	"github.com/taurusgroup/mpc-client/pkg/party"
)

// ErrInvalidContent is returned when a round receives a message whose content
// cannot be cast to the type it expects.
var ErrInvalidContent = errors.New("round: message content is invalid")

// Round is the interface an engine round must implement so that the protocol
// handler can drive it to completion.
type Round interface {
	// VerifyMessage handles an incoming Message and validates its content.
	// The content can be cast to the type returned by MessageContent without
	// an error check.
	// This function should not modify any saved state as it may be called
	// concurrently.
	VerifyMessage(msg Message) error

	// StoreMessage is called after VerifyMessage and should only store the
	// relevant fields of the content.
	StoreMessage(msg Message) error

	// Finalize is called once all messages from the other parties have been
	// processed for the current round. Messages for the next round are sent
	// through out.
	//
	// In the last round, Finalize should return the output wrapped by
	// Helper.ResultRound. When the protocol aborts, it should return the
	// result of Helper.AbortRound.
	Finalize(out chan<- *Message) (Session, error)

	// MessageContent returns an uninitialized Content for this round.
	// Rounds which expect no incoming messages should return nil.
	MessageContent() Content

	// Number returns the current round number.
	Number() Number
}

// Session represents the state of an engine execution. It embeds the current
// round and exposes the static information the handler needs.
type Session interface {
	Round

	// ProtocolID is an identifier for this protocol.
	ProtocolID() string
	// FinalRoundNumber is the number of rounds before the output round.
	FinalRoundNumber() Number
	// SSID is the unique identifier for this protocol execution.
	SSID() []byte
	// SelfID is this party's ID.
	SelfID() party.ID
	// PartyIDs is a sorted slice of the participating parties.
	PartyIDs() party.IDSlice
	// OtherPartyIDs returns a sorted list of parties without SelfID.
	OtherPartyIDs() party.IDSlice
	// Threshold is the maximum number of parties assumed corrupted during
	// this execution.
	Threshold() int
	// N returns the total number of participating parties.
	N() int
}
