package protocol

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

var (
	// ErrDuplicate indicates a message for a (round, sender) pair which was
	// already accepted, or for a round the handler has advanced past.
	ErrDuplicate = errors.New("protocol: message was already handled")
	// ErrUnknownSender indicates a message from a party which is not part of
	// this protocol execution.
	ErrUnknownSender = errors.New("protocol: unknown sender")
	// ErrWrongDestination indicates a message not addressed to this party.
	ErrWrongDestination = errors.New("protocol: message is not intended for selfID")
	// ErrWrongSSID indicates a message belonging to another protocol execution.
	ErrWrongSSID = errors.New("protocol: message SSID mismatch")
	// ErrWrongProtocolID indicates a message belonging to another protocol.
	ErrWrongProtocolID = errors.New("protocol: message protocol ID mismatch")
	// ErrInvalidRoundNumber indicates a message for a round beyond the final
	// round of the protocol.
	ErrInvalidRoundNumber = errors.New("protocol: round number is invalid")
	// ErrFinished indicates the handler already reached a terminal state.
	ErrFinished = errors.New("protocol: execution is finished")
	// ErrNotFinished is returned by Result while the protocol is running.
	ErrNotFinished = errors.New("protocol: not finished")
	// ErrAborted is returned by Result after the handler was stopped by the
	// caller, for example on timeout or cancellation.
	ErrAborted = errors.New("protocol: execution aborted")
)

// Error wraps an engine error with the round in which it occurred and a
// possible culprit. It is terminal for the protocol execution.
type Error struct {
	RoundNumber round.Number
	Culprit     party.ID
	Err         error
}

// Error implements error.
func (e Error) Error() string {
	if e.Culprit != 0 {
		return fmt.Sprintf("round %d: party %s: %s", e.RoundNumber, e.Culprit, e.Err)
	}
	return fmt.Sprintf("round %d: %s", e.RoundNumber, e.Err)
}

// Unwrap implements errors.Wrapper.
func (e Error) Unwrap() error {
	return e.Err
}
