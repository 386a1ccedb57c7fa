package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/taurusgroup/mpc-client/pkg/protocol"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// Run executes the protocol produced by start to completion and returns its
// output. It fails with ErrQuorumNotMet before the quorum is reached and
// ErrAlreadyUsed on a session which already ran.
//
// A round which does not complete within the round timeout terminates the run
// with ErrRoundTimeout. Engine aborts, peer-signalled aborts and context
// cancellation terminate it with ErrAborted; in all terminal failure cases
// the peers are notified best-effort so they can abort promptly rather than
// time out.
func (s *Session) Run(ctx context.Context, start protocol.StartFunc) (interface{}, error) {
	s.mtx.Lock()
	switch {
	case s.state != AwaitingQuorum:
		s.mtx.Unlock()
		return nil, ErrAlreadyUsed
	case !s.ready:
		// stays in AwaitingQuorum, the caller may retry once the quorum is met
		s.mtx.Unlock()
		return nil, ErrQuorumNotMet
	}
	s.state = Running
	s.mtx.Unlock()
	s.log.Info().Msg("running")

	// subscribe before creating the handler so that no message is missed
	// between our first sends and the peers' replies
	msgCh, cancelMsg := s.transport.Subscribe(transport.EventSessionMessage)
	defer cancelMsg()
	abortCh, cancelAbort := s.transport.Subscribe(transport.EventSessionAborted)
	defer cancelAbort()

	h, err := protocol.NewHandler(start, s.ID[:])
	if err != nil {
		s.setState(Aborted)
		return nil, fmt.Errorf("session: %w", err)
	}
	h.Log = s.log

	timer := time.NewTimer(s.roundTimeout)
	defer timer.Stop()
	lastRound := h.RoundNumber()

	for {
		select {
		case msg, ok := <-h.Listen():
			if !ok {
				return s.finish(ctx, h)
			}
			if err := s.send(ctx, msg); err != nil {
				h.Stop()
				s.setState(Aborted)
				return nil, fmt.Errorf("session: sending message: %w", err)
			}

		case n, ok := <-msgCh:
			if !ok {
				h.Stop()
				s.setState(Aborted)
				return nil, transport.ErrClosed
			}
			s.handleIncoming(h, n)

		case n, ok := <-abortCh:
			if !ok {
				h.Stop()
				s.setState(Aborted)
				return nil, transport.ErrClosed
			}
			if reason, aborted := s.matchAbort(n); aborted {
				h.Stop()
				s.setState(Aborted)
				return nil, fmt.Errorf("%w: peer signalled abort: %s", ErrAborted, reason)
			}

		case <-timer.C:
			h.Stop()
			s.notifyAbort("round timeout")
			s.setState(Aborted)
			return nil, fmt.Errorf("%w after %s in round %d", ErrRoundTimeout, s.roundTimeout, lastRound)

		case <-ctx.Done():
			h.Stop()
			s.notifyAbort("cancelled")
			s.setState(Aborted)
			return nil, fmt.Errorf("%w: %s", ErrAborted, ctx.Err())
		}

		// reset the round timer whenever the handler advanced
		if rn := h.RoundNumber(); rn != lastRound && rn != 0 {
			lastRound = rn
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.roundTimeout)
		}
	}
}

// finish resolves the handler's terminal state once its out channel closed.
func (s *Session) finish(_ context.Context, h *protocol.Handler) (interface{}, error) {
	result, err := h.Result()
	if err != nil {
		s.notifyAbort(err.Error())
		s.setState(Aborted)
		return nil, fmt.Errorf("%w: %s", ErrAborted, err)
	}
	s.setState(Completed)
	s.log.Info().Msg("completed")
	return result, nil
}

// send forwards an outgoing protocol message through the relay.
func (s *Session) send(ctx context.Context, msg *protocol.Message) error {
	data, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	req := transport.SessionMessageRequest{
		GroupID:   s.GroupID.String(),
		SessionID: s.ID.String(),
		Message:   data,
	}
	if !msg.Broadcast() {
		receiver := uint16(msg.To)
		req.Receiver = &receiver
	}
	return s.transport.Notify(ctx, transport.MethodSessionMessage, req)
}

// handleIncoming feeds a relayed protocol message to the handler. Messages
// for other sessions and messages failing validation are ignored; engine
// failures surface through the handler's terminal state.
func (s *Session) handleIncoming(h *protocol.Handler, n transport.Notification) {
	var note transport.SessionMessageNotification
	if err := json.Unmarshal(n.Params, &note); err != nil {
		s.log.Warn().Err(err).Msg("malformed session_message notification")
		return
	}
	if note.GroupID != s.GroupID.String() || note.SessionID != s.ID.String() {
		return
	}
	var msg protocol.Message
	if err := cbor.Unmarshal(note.Message, &msg); err != nil {
		s.log.Warn().Err(err).Msg("undecodable protocol message")
		return
	}
	if err := h.Accept(&msg); err != nil {
		s.log.Debug().Err(err).Msg("message not accepted")
	}
}

// matchAbort reports whether an abort notification concerns this session.
func (s *Session) matchAbort(n transport.Notification) (string, bool) {
	var note transport.SessionAbortedNotification
	if err := json.Unmarshal(n.Params, &note); err != nil {
		s.log.Warn().Err(err).Msg("malformed session_aborted notification")
		return "", false
	}
	if note.GroupID != s.GroupID.String() || note.SessionID != s.ID.String() {
		return "", false
	}
	if note.PartyNumber == uint16(s.PartyNumber) {
		// our own abort echoed back
		return "", false
	}
	return note.Reason, true
}

// notifyAbort tells the peers that this run will not complete. Best effort:
// the peers would otherwise time out.
func (s *Session) notifyAbort(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.transport.Notify(ctx, transport.EventSessionAborted, transport.SessionAbortedNotification{
		GroupID:     s.GroupID.String(),
		SessionID:   s.ID.String(),
		PartyNumber: uint16(s.PartyNumber),
		Reason:      reason,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to notify peers of abort")
	}
}
