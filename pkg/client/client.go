// Package client is the public facade: one connection to a relay, group
// creation and membership, session lifecycle, and the keygen and sign
// operations running protocol engines over that connection.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/group"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
	"github.com/taurusgroup/mpc-client/pkg/session"
	"github.com/taurusgroup/mpc-client/pkg/transport"
	"github.com/taurusgroup/mpc-client/pkg/transport/wsrpc"
	"github.com/taurusgroup/mpc-client/protocols/example"
)

// KeygenStartFunc builds the engine run by Keygen. The default is the
// insecure demonstration engine from protocols/example.
type KeygenStartFunc func(selfID party.ID, partyIDs party.IDSlice, threshold int) protocol.StartFunc

// SignStartFunc builds the engine run by Sign. The default is the insecure
// demonstration engine from protocols/example.
type SignStartFunc func(key *ecdsa.LocalKey, signers party.IDSlice, message []byte) protocol.StartFunc

// Option configures the client.
type Option func(*Client)

// WithRoundTimeout bounds each protocol round during Keygen and Sign.
func WithRoundTimeout(d time.Duration) Option {
	return func(c *Client) { c.roundTimeout = d }
}

// WithRequestTimeout bounds each relay request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHeader sets additional headers for the relay handshake.
func WithHeader(header http.Header) Option {
	return func(c *Client) { c.header = header }
}

// WithKeygenProtocol replaces the engine run by Keygen.
func WithKeygenProtocol(f KeygenStartFunc) Option {
	return func(c *Client) { c.keygenProtocol = f }
}

// WithSignProtocol replaces the engine run by Sign.
func WithSignProtocol(f SignStartFunc) Option {
	return func(c *Client) { c.signProtocol = f }
}

// Client multiplexes all group and session operations over one relay
// connection. It is safe for concurrent use; sessions themselves are
// single-use.
type Client struct {
	log            zerolog.Logger
	roundTimeout   time.Duration
	requestTimeout time.Duration
	header         http.Header
	keygenProtocol KeygenStartFunc
	signProtocol   SignStartFunc

	transport transport.Transport
	registry  *group.Registry

	mtx      sync.Mutex
	sessions map[uuid.UUID]*session.Session

	createdOnce     sync.Once
	readyOnce       sync.Once
	handlerMtx      sync.Mutex
	createdHandlers []func(SessionInfo)
	readyHandlers   []func(SessionInfo)
}

// Connect establishes the relay connection, e.g. to "ws://localhost:8080".
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		log:            zerolog.Nop(),
		roundTimeout:   session.DefaultRoundTimeout,
		requestTimeout: wsrpc.DefaultRequestTimeout,
		keygenProtocol: example.StartKeygen,
		signProtocol:   example.StartSign,
		sessions:       map[uuid.UUID]*session.Session{},
	}
	for _, opt := range opts {
		opt(c)
	}

	tr, err := wsrpc.Dial(ctx, endpoint,
		wsrpc.WithTimeout(c.requestTimeout),
		wsrpc.WithLogger(c.log),
		wsrpc.WithHeader(c.header),
	)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	c.transport = tr
	c.registry = group.NewRegistry(tr, c.log)
	return c, nil
}

// Close terminates the relay connection. In-flight sessions abort.
func (c *Client) Close() error {
	return c.transport.Close()
}

// GroupCreate registers a new group of parties parties with threshold
// threshold; the caller becomes party 1.
func (c *Client) GroupCreate(ctx context.Context, parties, threshold uint16) (*group.Group, error) {
	return c.registry.Create(ctx, parties, threshold)
}

// GroupJoin adds the caller to an existing group, assigning the next free
// party number in join order.
func (c *Client) GroupJoin(ctx context.Context, groupID uuid.UUID) (*group.Group, error) {
	return c.registry.Join(ctx, groupID)
}

// Keygen runs distributed key generation in the given session. All n parties
// of the group must have signed up; the call waits for the session's quorum
// before running.
func (c *Client) Keygen(ctx context.Context, groupID, sessionID uuid.UUID, partyNumber party.ID, parties, threshold uint16) (*ecdsa.LocalKey, error) {
	sess, err := c.lookupSession(groupID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PartyNumber != partyNumber {
		return nil, fmt.Errorf("client: party number %d does not match the session's %d", partyNumber, sess.PartyNumber)
	}
	if err := sess.AwaitReady(ctx); err != nil {
		return nil, fmt.Errorf("client: keygen: %w", err)
	}

	result, err := sess.Run(ctx, c.keygenProtocol(partyNumber, party.Range(int(parties)), int(threshold)))
	if err != nil {
		return nil, fmt.Errorf("client: keygen: %w", err)
	}
	key, ok := result.(*ecdsa.LocalKey)
	if !ok {
		return nil, fmt.Errorf("client: keygen engine returned %T, want *ecdsa.LocalKey", result)
	}
	return key, nil
}

// Sign produces a signature over message in the given session. The logged-in
// parties must hold shares of the same key and number at least threshold+1.
func (c *Client) Sign(ctx context.Context, groupID, sessionID uuid.UUID, localKey *ecdsa.LocalKey, parties party.IDSlice, message []byte) (*ecdsa.Signature, error) {
	sess, err := c.lookupSession(groupID, sessionID)
	if err != nil {
		return nil, err
	}
	// the asserted party number must match the key share, preventing a holder
	// of share i from signing as party j
	if sess.PartyNumber != localKey.I {
		return nil, fmt.Errorf("client: session party number %d does not match local key share %d", sess.PartyNumber, localKey.I)
	}
	if err := sess.AwaitReady(ctx); err != nil {
		return nil, fmt.Errorf("client: sign: %w", err)
	}

	result, err := sess.Run(ctx, c.signProtocol(localKey, parties, message))
	if err != nil {
		return nil, fmt.Errorf("client: sign: %w", err)
	}
	sig, ok := result.(*ecdsa.Signature)
	if !ok {
		return nil, fmt.Errorf("client: sign engine returned %T, want *ecdsa.Signature", result)
	}
	return sig, nil
}

func (c *Client) lookupSession(groupID, sessionID uuid.UUID) (*session.Session, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("client: unknown session %s, create, signup or login first", sessionID)
	}
	if sess.GroupID != groupID {
		return nil, fmt.Errorf("client: session %s does not belong to group %s", sessionID, groupID)
	}
	return sess, nil
}
