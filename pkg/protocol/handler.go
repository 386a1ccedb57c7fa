// Package protocol implements the generic round executor driving an engine
// through its rounds. It bridges an asynchronous message stream to a
// synchronous-round protocol: outgoing messages are produced on a channel,
// incoming messages are buffered per round and only handed to the engine once
// the round's inputs are complete.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// StartFunc creates the first round of an engine, bound to the given session
// identifier. If creation fails, likely due to misconfiguration, an error is
// returned.
type StartFunc func(sessionID []byte) (round.Session, error)

// Handler drives a single engine execution for one party. It is the only
// component which feeds messages to the engine; one Handler is exclusive to
// one session run.
type Handler struct {
	mtx sync.Mutex

	Log zerolog.Logger

	queue    queue
	outChan  chan *Message
	r        round.Session
	received map[party.ID]bool
	result   interface{}
	err      error
	done     bool
}

// NewHandler starts the engine produced by create and executes its first
// round. The returned handler exposes outgoing messages via Listen and
// consumes incoming ones via Accept.
func NewHandler(create StartFunc, sessionID []byte) (*Handler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	h := &Handler{
		outChan: make(chan *Message, 2*r.N()),
		r:       r,
	}
	h.Log = zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.InfoLevel).With().
		Str("protocol", r.ProtocolID()).
		Stringer("party", r.SelfID()).
		Logger()
	h.resetReceived()

	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.Log.Info().Msg("start")
	if h.roundComplete() {
		if err := h.advance(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Listen returns a channel with outgoing messages that must be sent to the
// other parties. The channel is closed when the protocol terminates, either
// with a result or with an error.
func (h *Handler) Listen() <-chan *Message {
	return h.outChan
}

// Result returns the engine output if the protocol completed successfully,
// and otherwise the error which terminated it. Before termination it returns
// ErrNotFinished.
func (h *Handler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, h.err
	}
	return nil, ErrNotFinished
}

// RoundNumber returns the number of the round currently being executed, or 0
// once the protocol has terminated.
func (h *Handler) RoundNumber() round.Number {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.done {
		return 0
	}
	return h.r.Number()
}

// Accept performs the following:
//   - validate the envelope against this execution (SSID, protocol, sender,
//     destination, round bounds),
//   - reject duplicates for the same (round, sender) pair,
//   - buffer the message under its round,
//   - if all messages required for the current round have arrived, deliver
//     them to the engine in ascending sender order and advance.
//
// Messages which fail validation are reported via the returned error but do
// not terminate the protocol; engine-level failures do.
func (h *Handler) Accept(msg *Message) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.done {
		if h.err != nil {
			return h.err
		}
		return ErrFinished
	}

	if err := h.validate(msg); err != nil {
		h.Log.Debug().Err(err).Stringer("msg", msg).Msg("rejected message")
		return err
	}
	if err := h.queue.Store(msg); err != nil {
		return err
	}
	if msg.RoundNumber == h.r.Number() {
		h.received[msg.From] = true
	}

	if h.roundComplete() {
		return h.advance()
	}
	return nil
}

// Stop aborts the execution from the outside, for example on a round timeout
// or a peer-signalled abort. It is a no-op once the protocol has terminated.
func (h *Handler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.done {
		h.err = ErrAborted
		h.stop()
	}
}

func (h *Handler) validate(msg *Message) error {
	if msg == nil {
		return errors.New("protocol: nil message")
	}
	if !bytes.Equal(msg.SSID, h.r.SSID()) {
		return ErrWrongSSID
	}
	if msg.Protocol != h.r.ProtocolID() {
		return ErrWrongProtocolID
	}
	if !h.r.OtherPartyIDs().Contains(msg.From) {
		return ErrUnknownSender
	}
	if !msg.IsFor(h.r.SelfID()) {
		return ErrWrongDestination
	}
	if msg.RoundNumber > h.r.FinalRoundNumber() || msg.RoundNumber == 0 {
		return ErrInvalidRoundNumber
	}
	if msg.RoundNumber < h.r.Number() {
		return ErrDuplicate
	}
	return nil
}

// roundComplete returns true when the current round expects no content, or
// when a message has been buffered for it from every other party.
func (h *Handler) roundComplete() bool {
	if h.r.MessageContent() == nil {
		return true
	}
	for _, ok := range h.received {
		if !ok {
			return false
		}
	}
	return true
}

// advance delivers the buffered messages for the current round to the engine
// in ascending sender order, finalizes it, and repeats while the next round is
// already complete.
func (h *Handler) advance() error {
	for {
		if h.r.MessageContent() != nil {
			for _, msg := range h.queue.Get(h.r.Number()) {
				if err := h.deliver(msg); err != nil {
					return err
				}
			}
		}

		// collect the messages for the next round before forwarding them
		roundMsgs := make(chan *round.Message, 2*h.r.N())
		nextRound, err := h.r.Finalize(roundMsgs)
		close(roundMsgs)
		if err != nil || nextRound == nil {
			return h.abort(err)
		}
		for rm := range roundMsgs {
			if err := h.send(rm); err != nil {
				return h.abort(err)
			}
		}

		switch r := nextRound.(type) {
		case *round.Output:
			h.result = r.Result
			if h.result == nil {
				h.abortWith(errors.New("protocol: finished without result"))
				return h.err
			}
			h.Log.Info().Msg("finished")
			h.stop()
			return nil
		case *round.Abort:
			var culprit party.ID
			if len(r.Culprits) > 0 {
				culprit = r.Culprits[0]
			}
			h.err = Error{RoundNumber: h.r.Number(), Culprit: culprit, Err: r.Err}
			h.Log.Warn().Err(h.err).Msg("aborted")
			h.stop()
			return h.err
		default:
			h.r = r
		}

		h.Log.Info().Uint16("round", uint16(h.r.Number())).Msg("round advanced")
		h.resetReceived()
		for _, msg := range h.queue.messages {
			if msg.RoundNumber == h.r.Number() {
				h.received[msg.From] = true
			}
		}
		if !h.roundComplete() {
			return nil
		}
	}
}

// deliver unmarshals the message content and hands it to the engine.
// Failures here are engine-level and terminate the protocol.
func (h *Handler) deliver(msg *Message) error {
	content := h.r.MessageContent()
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return h.abortFrom(err, msg.From)
	}
	rm := round.Message{From: msg.From, To: msg.To, Broadcast: msg.Broadcast(), Content: content}
	if err := h.r.VerifyMessage(rm); err != nil {
		return h.abortFrom(err, msg.From)
	}
	if err := h.r.StoreMessage(rm); err != nil {
		return h.abortFrom(err, msg.From)
	}
	return nil
}

// send wraps an engine message into a wire envelope.
func (h *Handler) send(rm *round.Message) error {
	data, err := cbor.Marshal(rm.Content)
	if err != nil {
		return fmt.Errorf("protocol: failed to marshal content: %w", err)
	}
	msg := &Message{
		SSID:        h.r.SSID(),
		From:        rm.From,
		To:          rm.To,
		Protocol:    h.r.ProtocolID(),
		RoundNumber: rm.Content.RoundNumber(),
		Data:        data,
	}
	select {
	case h.outChan <- msg:
		return nil
	default:
		return errors.New("protocol: out channel full")
	}
}

func (h *Handler) abort(err error) error {
	return h.abortFrom(err, 0)
}

func (h *Handler) abortFrom(err error, culprit party.ID) error {
	if err == nil {
		err = errors.New("protocol: round failed without error")
	}
	h.abortWith(Error{RoundNumber: h.r.Number(), Culprit: culprit, Err: err})
	return h.err
}

func (h *Handler) abortWith(err error) {
	if h.err == nil {
		h.err = err
	}
	h.Log.Warn().Err(h.err).Msg("aborted")
	h.stop()
}

func (h *Handler) resetReceived() {
	received := make(map[party.ID]bool, h.r.N())
	for _, id := range h.r.OtherPartyIDs() {
		received[id] = false
	}
	h.received = received
}

func (h *Handler) stop() {
	if !h.done {
		h.done = true
		close(h.outChan)
	}
}
