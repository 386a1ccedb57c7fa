package transport

import "encoding/json"

// Methods the client invokes on the relay.
const (
	MethodGroupCreate    = "group_create"
	MethodGroupJoin      = "group_join"
	MethodSessionCreate  = "session_create"
	MethodSessionSignup  = "session_signup"
	MethodSessionLogin   = "session_login"
	MethodSessionMessage = "session_message"
)

// Events the relay pushes to connected clients.
const (
	EventSessionCreated = "session_created"
	EventSessionReady   = "session_ready"
	EventSessionAborted = "session_aborted"
	EventSessionMessage = MethodSessionMessage
)

// Parameters describes a group: the number of parties n and the threshold t,
// with 0 < t < n.
type Parameters struct {
	Parties   uint16 `json:"parties"`
	Threshold uint16 `json:"threshold"`
}

type GroupCreateRequest struct {
	Parameters Parameters `json:"parameters"`
}

type GroupJoinRequest struct {
	GroupID string `json:"group_id"`
}

// GroupResponse is returned by both group_create and group_join. PartyNumber
// is assigned by the relay in join order, the creator being party 1.
type GroupResponse struct {
	GroupID     string     `json:"group_id"`
	Parameters  Parameters `json:"parameters"`
	PartyNumber uint16     `json:"party_number"`
}

type SessionCreateRequest struct {
	GroupID string          `json:"group_id"`
	Kind    string          `json:"kind"`
	Value   json.RawMessage `json:"value,omitempty"`
}

type SessionSignupRequest struct {
	GroupID   string `json:"group_id"`
	SessionID string `json:"session_id"`
}

type SessionLoginRequest struct {
	GroupID     string `json:"group_id"`
	SessionID   string `json:"session_id"`
	PartyNumber uint16 `json:"party_number"`
}

// SessionResponse is returned by session_create, session_signup and
// session_login.
type SessionResponse struct {
	GroupID     string `json:"group_id"`
	SessionID   string `json:"session_id"`
	Kind        string `json:"kind"`
	PartyNumber uint16 `json:"party_number"`
}

// SessionMessageRequest forwards an opaque protocol message to the other
// parties of a session. A nil Receiver broadcasts to all parties but the
// sender.
type SessionMessageRequest struct {
	GroupID   string  `json:"group_id"`
	SessionID string  `json:"session_id"`
	Receiver  *uint16 `json:"receiver,omitempty"`
	Message   []byte  `json:"message"`
}

// SessionMessageNotification delivers a forwarded protocol message.
type SessionMessageNotification struct {
	GroupID   string  `json:"group_id"`
	SessionID string  `json:"session_id"`
	Sender    uint16  `json:"sender"`
	Receiver  *uint16 `json:"receiver,omitempty"`
	Message   []byte  `json:"message"`
}

// SessionCreatedNotification announces a new session to the group.
type SessionCreatedNotification struct {
	GroupID   string `json:"group_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// SessionReadyNotification announces that a session reached its quorum.
type SessionReadyNotification struct {
	GroupID   string `json:"group_id"`
	SessionID string `json:"session_id"`
}

// SessionAbortedNotification announces that a party aborted the session.
type SessionAbortedNotification struct {
	GroupID     string `json:"group_id"`
	SessionID   string `json:"session_id"`
	PartyNumber uint16 `json:"party_number"`
	Reason      string `json:"reason,omitempty"`
}
