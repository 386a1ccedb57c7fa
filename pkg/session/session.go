// Package session implements the per-operation coordination unit: a
// single-use state machine which waits for the session's quorum, then drives
// a protocol engine through its rounds over the relay transport.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// Kind is the operation a session coordinates.
type Kind string

const (
	KindKeygen Kind = "keygen"
	KindSign   Kind = "sign"
)

// DefaultRoundTimeout bounds the wait for a protocol round to complete.
const DefaultRoundTimeout = 30 * time.Second

var (
	// ErrQuorumNotMet is returned by Run when invoked before the session's
	// quorum was reached; the session stays in AwaitingQuorum.
	ErrQuorumNotMet = errors.New("session: quorum not met")
	// ErrAborted indicates the protocol run failed, either locally or because
	// a peer signalled an abort. The session is terminal.
	ErrAborted = errors.New("session: aborted")
	// ErrRoundTimeout indicates a round did not complete within the bound.
	// The session is terminal.
	ErrRoundTimeout = errors.New("session: round timed out")
	// ErrAlreadyUsed is returned by Run on a session whose protocol run
	// already started or finished. Sessions are single-use.
	ErrAlreadyUsed = errors.New("session: already used")
)

// State is the lifecycle state of a session.
type State uint32

const (
	Created State = iota
	AwaitingQuorum
	Running
	Completed
	Aborted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case AwaitingQuorum:
		return "awaiting-quorum"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Params describes the session as returned by the relay.
type Params struct {
	GroupID     uuid.UUID
	SessionID   uuid.UUID
	Kind        Kind
	PartyNumber party.ID

	// RoundTimeout bounds each protocol round; DefaultRoundTimeout when zero.
	RoundTimeout time.Duration
	Log          zerolog.Logger
}

// Session coordinates one protocol run for one party. It is single-use: after
// Run returns, the session is terminal.
type Session struct {
	GroupID     uuid.UUID
	ID          uuid.UUID
	Kind        Kind
	PartyNumber party.ID

	transport    transport.Transport
	log          zerolog.Logger
	roundTimeout time.Duration

	readyCh     <-chan transport.Notification
	readyCancel func()

	mtx   sync.Mutex
	state State
	ready bool
}

// New returns a session in the AwaitingQuorum state. It immediately
// subscribes to the relay's ready notifications so that a quorum reached
// before AwaitReady is called is not missed.
func New(tr transport.Transport, p Params) *Session {
	timeout := p.RoundTimeout
	if timeout <= 0 {
		timeout = DefaultRoundTimeout
	}
	s := &Session{
		GroupID:      p.GroupID,
		ID:           p.SessionID,
		Kind:         p.Kind,
		PartyNumber:  p.PartyNumber,
		transport:    tr,
		roundTimeout: timeout,
		state:        AwaitingQuorum,
	}
	s.log = p.Log.With().
		Stringer("session", s.ID).
		Stringer("party", s.PartyNumber).
		Str("kind", string(s.Kind)).
		Logger()
	s.readyCh, s.readyCancel = tr.Subscribe(transport.EventSessionReady)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// AwaitReady blocks until the relay announces that the session's quorum was
// reached, after which Run may be called. Cancelling the context is a clean
// local stop with no side effects.
func (s *Session) AwaitReady(ctx context.Context) error {
	s.mtx.Lock()
	if s.ready {
		s.mtx.Unlock()
		return nil
	}
	s.mtx.Unlock()

	for {
		select {
		case n, ok := <-s.readyCh:
			if !ok {
				return transport.ErrClosed
			}
			var note transport.SessionReadyNotification
			if err := json.Unmarshal(n.Params, &note); err != nil {
				s.log.Warn().Err(err).Msg("malformed session_ready notification")
				continue
			}
			if note.GroupID != s.GroupID.String() || note.SessionID != s.ID.String() {
				continue
			}
			s.markReady()
			s.log.Info().Msg("session ready")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// markReady records that the quorum was reached.
func (s *Session) markReady() {
	s.mtx.Lock()
	s.ready = true
	s.mtx.Unlock()
	s.readyCancel()
}

func (s *Session) setState(next State) {
	s.mtx.Lock()
	prev := s.state
	s.state = next
	s.mtx.Unlock()
	s.log.Debug().Stringer("from", prev).Stringer("to", next).Msg("state transition")
}
