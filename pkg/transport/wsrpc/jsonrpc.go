package wsrpc

import (
	"encoding/json"

	"github.com/taurusgroup/mpc-client/pkg/transport"
)

const version = "2.0"

// request is a JSON-RPC 2.0 request. A nil ID marks a notification.
type request struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	Jsonrpc string              `json:"jsonrpc"`
	ID      *uint64             `json:"id"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *transport.RPCError `json:"error,omitempty"`
}

// envelope is the union of request and response, used to classify incoming
// frames.
type envelope struct {
	Jsonrpc string              `json:"jsonrpc"`
	ID      *uint64             `json:"id"`
	Method  string              `json:"method"`
	Params  json.RawMessage     `json:"params"`
	Result  json.RawMessage     `json:"result"`
	Error   *transport.RPCError `json:"error"`
}

func (e *envelope) isNotification() bool { return e.ID == nil && e.Method != "" }
func (e *envelope) isResponse() bool     { return e.ID != nil && e.Method == "" }
