package client

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/taurusgroup/mpc-client/pkg/session"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// SessionInfo describes a session lifecycle event.
type SessionInfo struct {
	GroupID   uuid.UUID
	SessionID uuid.UUID
	Kind      session.Kind
}

// OnSessionCreated registers a handler invoked whenever the relay announces a
// new session in one of this client's groups. Multiple handlers may be
// registered; each receives every event, in arrival order.
func (c *Client) OnSessionCreated(handler func(SessionInfo)) {
	c.handlerMtx.Lock()
	c.createdHandlers = append(c.createdHandlers, handler)
	c.handlerMtx.Unlock()

	c.createdOnce.Do(func() {
		ch, _ := c.transport.Subscribe(transport.EventSessionCreated)
		go c.dispatchCreated(ch)
	})
}

// OnSessionReady registers a handler invoked whenever a session reaches its
// quorum.
func (c *Client) OnSessionReady(handler func(SessionInfo)) {
	c.handlerMtx.Lock()
	c.readyHandlers = append(c.readyHandlers, handler)
	c.handlerMtx.Unlock()

	c.readyOnce.Do(func() {
		ch, _ := c.transport.Subscribe(transport.EventSessionReady)
		go c.dispatchReady(ch)
	})
}

func (c *Client) dispatchCreated(ch <-chan transport.Notification) {
	for n := range ch {
		var note transport.SessionCreatedNotification
		if err := json.Unmarshal(n.Params, &note); err != nil {
			c.log.Warn().Err(err).Msg("malformed session_created notification")
			continue
		}
		info, err := sessionInfo(note.GroupID, note.SessionID, note.Kind)
		if err != nil {
			c.log.Warn().Err(err).Msg("invalid session_created notification")
			continue
		}
		c.handlerMtx.Lock()
		handlers := append([]func(SessionInfo){}, c.createdHandlers...)
		c.handlerMtx.Unlock()
		for _, handler := range handlers {
			handler(info)
		}
	}
}

func (c *Client) dispatchReady(ch <-chan transport.Notification) {
	for n := range ch {
		var note transport.SessionReadyNotification
		if err := json.Unmarshal(n.Params, &note); err != nil {
			c.log.Warn().Err(err).Msg("malformed session_ready notification")
			continue
		}
		info, err := sessionInfo(note.GroupID, note.SessionID, "")
		if err != nil {
			c.log.Warn().Err(err).Msg("invalid session_ready notification")
			continue
		}
		c.handlerMtx.Lock()
		handlers := append([]func(SessionInfo){}, c.readyHandlers...)
		c.handlerMtx.Unlock()
		for _, handler := range handlers {
			handler(info)
		}
	}
}

func sessionInfo(groupID, sessionID, kind string) (SessionInfo, error) {
	gid, err := uuid.Parse(groupID)
	if err != nil {
		return SessionInfo{}, err
	}
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{GroupID: gid, SessionID: sid, Kind: session.Kind(kind)}, nil
}
