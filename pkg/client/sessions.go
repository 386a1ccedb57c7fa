package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/session"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// SessionCreate opens a new session under a group. For sign sessions, payload
// carries the message to be signed so that late parties can learn it; it is
// opaque to the relay.
func (c *Client) SessionCreate(ctx context.Context, groupID uuid.UUID, kind session.Kind, payload []byte) (*session.Session, error) {
	req := transport.SessionCreateRequest{
		GroupID: groupID.String(),
		Kind:    string(kind),
	}
	if payload != nil {
		value, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: session create: encoding payload: %w", err)
		}
		req.Value = value
	}
	var res transport.SessionResponse
	if err := c.transport.Call(ctx, transport.MethodSessionCreate, req, &res); err != nil {
		return nil, fmt.Errorf("client: session create: %w", err)
	}
	return c.trackSession(&res)
}

// SessionSignup joins a keygen session, counting towards its quorum of n.
func (c *Client) SessionSignup(ctx context.Context, groupID, sessionID uuid.UUID) (*session.Session, error) {
	req := transport.SessionSignupRequest{
		GroupID:   groupID.String(),
		SessionID: sessionID.String(),
	}
	var res transport.SessionResponse
	if err := c.transport.Call(ctx, transport.MethodSessionSignup, req, &res); err != nil {
		return nil, fmt.Errorf("client: session signup: %w", err)
	}
	return c.trackSession(&res)
}

// SessionLogin joins a sign session with the party number of an existing key
// share, counting towards its quorum of t+1.
func (c *Client) SessionLogin(ctx context.Context, groupID, sessionID uuid.UUID, partyNumber party.ID) (*session.Session, error) {
	req := transport.SessionLoginRequest{
		GroupID:     groupID.String(),
		SessionID:   sessionID.String(),
		PartyNumber: uint16(partyNumber),
	}
	var res transport.SessionResponse
	if err := c.transport.Call(ctx, transport.MethodSessionLogin, req, &res); err != nil {
		return nil, fmt.Errorf("client: session login: %w", err)
	}
	return c.trackSession(&res)
}

// trackSession validates the relay's view and registers the session so that
// Keygen and Sign can find it.
func (c *Client) trackSession(res *transport.SessionResponse) (*session.Session, error) {
	groupID, err := uuid.Parse(res.GroupID)
	if err != nil {
		return nil, fmt.Errorf("client: relay returned invalid group id %q: %w", res.GroupID, err)
	}
	sessionID, err := uuid.Parse(res.SessionID)
	if err != nil {
		return nil, fmt.Errorf("client: relay returned invalid session id %q: %w", res.SessionID, err)
	}
	partyNumber := party.ID(res.PartyNumber)
	if !partyNumber.Valid() {
		return nil, fmt.Errorf("client: relay assigned invalid party number %d", res.PartyNumber)
	}

	sess := session.New(c.transport, session.Params{
		GroupID:      groupID,
		SessionID:    sessionID,
		Kind:         session.Kind(res.Kind),
		PartyNumber:  partyNumber,
		RoundTimeout: c.roundTimeout,
		Log:          c.log,
	})

	c.mtx.Lock()
	c.sessions[sessionID] = sess
	c.mtx.Unlock()
	return sess, nil
}
