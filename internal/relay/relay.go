// Package relay implements an in-memory relay server: groups, sessions and
// message fan-out over WebSocket JSON-RPC. It backs the integration tests and
// the example driver; it persists nothing and trusts its clients.
package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/pkg/transport"
)

const codeInvalidParams = -32602

// Server is an http.Handler upgrading every request to a relay connection.
type Server struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mtx    sync.Mutex
	groups map[uuid.UUID]*relayGroup
}

type relayGroup struct {
	id         uuid.UUID
	params     transport.Parameters
	members    map[uint16]*conn
	memberOf   map[*conn]uint16
	nextNumber uint16
	sessions   map[uuid.UUID]*relaySession
}

type relaySession struct {
	id           uuid.UUID
	kind         string
	value        json.RawMessage
	quorum       int
	participants map[uint16]*conn
	ready        bool
}

// NewServer returns a relay with no groups.
func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:    log,
		groups: map[uuid.UUID]*relayGroup{},
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	c := &conn{ws: ws}
	s.log.Debug().Str("remote", ws.RemoteAddr().String()).Msg("client connected")
	s.serve(c)
}

func (s *Server) serve(c *conn) {
	defer c.ws.Close()
	for {
		var req rpcRequest
		if err := c.ws.ReadJSON(&req); err != nil {
			s.log.Debug().Err(err).Msg("client disconnected")
			return
		}
		s.dispatch(c, &req)
	}
}

func (s *Server) dispatch(c *conn, req *rpcRequest) {
	var (
		result interface{}
		err    *transport.RPCError
	)
	switch req.Method {
	case transport.MethodGroupCreate:
		result, err = s.groupCreate(c, req.Params)
	case transport.MethodGroupJoin:
		result, err = s.groupJoin(c, req.Params)
	case transport.MethodSessionCreate:
		result, err = s.sessionCreate(c, req.Params)
	case transport.MethodSessionSignup:
		result, err = s.sessionSignup(c, req.Params)
	case transport.MethodSessionLogin:
		result, err = s.sessionLogin(c, req.Params)
	case transport.MethodSessionMessage:
		s.sessionMessage(c, req.Params)
		return // notification, no response
	case transport.EventSessionAborted:
		s.sessionAborted(c, req.Params)
		return
	default:
		err = &transport.RPCError{Code: -32601, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}

	if req.ID == nil {
		return
	}
	res := &rpcResponse{Jsonrpc: version, ID: req.ID, Error: err}
	if err == nil {
		data, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			s.log.Error().Err(marshalErr).Msg("marshalling response")
			return
		}
		res.Result = data
	}
	if writeErr := c.writeJSON(res); writeErr != nil {
		s.log.Warn().Err(writeErr).Msg("writing response")
	}
}

func (s *Server) groupCreate(c *conn, params json.RawMessage) (interface{}, *transport.RPCError) {
	var req transport.GroupCreateRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	p := req.Parameters
	if p.Threshold < 1 || p.Threshold >= p.Parties {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid parameters n=%d t=%d", p.Parties, p.Threshold)}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	g := &relayGroup{
		id:         uuid.New(),
		params:     p,
		members:    map[uint16]*conn{1: c},
		memberOf:   map[*conn]uint16{c: 1},
		nextNumber: 2,
		sessions:   map[uuid.UUID]*relaySession{},
	}
	s.groups[g.id] = g
	s.log.Info().Stringer("group", g.id).Uint16("parties", p.Parties).Uint16("threshold", p.Threshold).Msg("group created")
	return &transport.GroupResponse{GroupID: g.id.String(), Parameters: p, PartyNumber: 1}, nil
}

func (s *Server) groupJoin(c *conn, params json.RawMessage) (interface{}, *transport.RPCError) {
	var req transport.GroupJoinRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: err.Error()}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	g, rpcErr := s.lookupGroup(req.GroupID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	// numbers are assigned monotonically and never reused
	if g.nextNumber > g.params.Parties {
		return nil, &transport.RPCError{Code: transport.CodeGroupFull, Message: "all parties have joined"}
	}
	number := g.nextNumber
	g.nextNumber++
	g.members[number] = c
	g.memberOf[c] = number
	s.log.Info().Stringer("group", g.id).Uint16("party", number).Msg("party joined")
	return &transport.GroupResponse{GroupID: g.id.String(), Parameters: g.params, PartyNumber: number}, nil
}

func (s *Server) sessionCreate(c *conn, params json.RawMessage) (interface{}, *transport.RPCError) {
	var req transport.SessionCreateRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: err.Error()}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	g, rpcErr := s.lookupGroup(req.GroupID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	number, ok := g.memberOf[c]
	if !ok {
		return nil, &transport.RPCError{Code: transport.CodeNotFound, Message: "not a member of this group"}
	}

	quorum := int(g.params.Parties)
	if req.Kind == "sign" {
		quorum = int(g.params.Threshold) + 1
	}
	sess := &relaySession{
		id:           uuid.New(),
		kind:         req.Kind,
		value:        req.Value,
		quorum:       quorum,
		participants: map[uint16]*conn{number: c},
	}
	g.sessions[sess.id] = sess
	s.log.Info().Stringer("group", g.id).Stringer("session", sess.id).Str("kind", req.Kind).Int("quorum", quorum).Msg("session created")

	// announce to the other group members
	note := transport.SessionCreatedNotification{GroupID: g.id.String(), SessionID: sess.id.String(), Kind: req.Kind}
	for n, member := range g.members {
		if n != number {
			s.notify(member, transport.EventSessionCreated, note)
		}
	}
	s.checkReady(g, sess)

	return s.sessionResponse(g, sess, number), nil
}

func (s *Server) sessionSignup(c *conn, params json.RawMessage) (interface{}, *transport.RPCError) {
	var req transport.SessionSignupRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: err.Error()}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	g, sess, rpcErr := s.lookupSession(req.GroupID, req.SessionID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	number, ok := g.memberOf[c]
	if !ok {
		return nil, &transport.RPCError{Code: transport.CodeNotFound, Message: "not a member of this group"}
	}
	sess.participants[number] = c
	s.log.Debug().Stringer("session", sess.id).Uint16("party", number).Msg("signup")
	s.checkReady(g, sess)
	return s.sessionResponse(g, sess, number), nil
}

func (s *Server) sessionLogin(c *conn, params json.RawMessage) (interface{}, *transport.RPCError) {
	var req transport.SessionLoginRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: err.Error()}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	g, sess, rpcErr := s.lookupSession(req.GroupID, req.SessionID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if req.PartyNumber < 1 || req.PartyNumber > g.params.Parties {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("party number %d outside group", req.PartyNumber)}
	}
	sess.participants[req.PartyNumber] = c
	s.log.Debug().Stringer("session", sess.id).Uint16("party", req.PartyNumber).Msg("login")
	s.checkReady(g, sess)
	return s.sessionResponse(g, sess, req.PartyNumber), nil
}

func (s *Server) sessionMessage(c *conn, params json.RawMessage) {
	var req transport.SessionMessageRequest
	if err := json.Unmarshal(params, &req); err != nil {
		s.log.Warn().Err(err).Msg("malformed session_message")
		return
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, sess, rpcErr := s.lookupSession(req.GroupID, req.SessionID)
	if rpcErr != nil {
		s.log.Warn().Str("session", req.SessionID).Msg("message for unknown session")
		return
	}
	sender, ok := participantNumber(sess, c)
	if !ok {
		s.log.Warn().Stringer("session", sess.id).Msg("message from non-participant")
		return
	}

	note := transport.SessionMessageNotification{
		GroupID:   req.GroupID,
		SessionID: req.SessionID,
		Sender:    sender,
		Receiver:  req.Receiver,
		Message:   req.Message,
	}
	for number, participant := range sess.participants {
		if number == sender {
			continue
		}
		if req.Receiver != nil && *req.Receiver != number {
			continue
		}
		s.notify(participant, transport.EventSessionMessage, note)
	}
}

func (s *Server) sessionAborted(c *conn, params json.RawMessage) {
	var note transport.SessionAbortedNotification
	if err := json.Unmarshal(params, &note); err != nil {
		s.log.Warn().Err(err).Msg("malformed session_aborted")
		return
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, sess, rpcErr := s.lookupSession(note.GroupID, note.SessionID)
	if rpcErr != nil {
		return
	}
	sender, ok := participantNumber(sess, c)
	if !ok {
		return
	}
	note.PartyNumber = sender
	s.log.Info().Stringer("session", sess.id).Uint16("party", sender).Str("reason", note.Reason).Msg("abort")
	for number, participant := range sess.participants {
		if number != sender {
			s.notify(participant, transport.EventSessionAborted, note)
		}
	}
}

// checkReady fires session_ready exactly once, when the quorum is reached.
// Callers hold s.mtx.
func (s *Server) checkReady(g *relayGroup, sess *relaySession) {
	if sess.ready || len(sess.participants) < sess.quorum {
		return
	}
	sess.ready = true
	s.log.Info().Stringer("session", sess.id).Int("participants", len(sess.participants)).Msg("session ready")
	note := transport.SessionReadyNotification{GroupID: g.id.String(), SessionID: sess.id.String()}
	for _, participant := range sess.participants {
		s.notify(participant, transport.EventSessionReady, note)
	}
}

func (s *Server) sessionResponse(g *relayGroup, sess *relaySession, number uint16) *transport.SessionResponse {
	return &transport.SessionResponse{
		GroupID:     g.id.String(),
		SessionID:   sess.id.String(),
		Kind:        sess.kind,
		PartyNumber: number,
	}
}

// lookupGroup resolves a group id. Callers hold s.mtx.
func (s *Server) lookupGroup(groupID string) (*relayGroup, *transport.RPCError) {
	id, err := uuid.Parse(groupID)
	if err != nil {
		return nil, &transport.RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid group id %q", groupID)}
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, &transport.RPCError{Code: transport.CodeNotFound, Message: fmt.Sprintf("unknown group %s", id)}
	}
	return g, nil
}

// lookupSession resolves a (group, session) id pair. Callers hold s.mtx.
func (s *Server) lookupSession(groupID, sessionID string) (*relayGroup, *relaySession, *transport.RPCError) {
	g, rpcErr := s.lookupGroup(groupID)
	if rpcErr != nil {
		return nil, nil, rpcErr
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, nil, &transport.RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid session id %q", sessionID)}
	}
	sess, ok := g.sessions[id]
	if !ok {
		return nil, nil, &transport.RPCError{Code: transport.CodeNotFound, Message: fmt.Sprintf("unknown session %s", id)}
	}
	return g, sess, nil
}

func (s *Server) notify(c *conn, method string, params interface{}) {
	data, err := json.Marshal(params)
	if err != nil {
		s.log.Error().Err(err).Msg("marshalling notification")
		return
	}
	if err := c.writeJSON(&rpcRequest{Jsonrpc: version, Method: method, Params: data}); err != nil {
		s.log.Warn().Err(err).Str("method", method).Msg("notification write failed")
	}
}

func participantNumber(sess *relaySession, c *conn) (uint16, bool) {
	for number, participant := range sess.participants {
		if participant == c {
			return number, true
		}
	}
	return 0, false
}
