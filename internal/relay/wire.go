package relay

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/taurusgroup/mpc-client/pkg/transport"
)

const version = "2.0"

// rpcRequest is an incoming JSON-RPC 2.0 frame; a nil ID marks a notification.
type rpcRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	Jsonrpc string              `json:"jsonrpc"`
	ID      *uint64             `json:"id"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *transport.RPCError `json:"error,omitempty"`
}

// conn wraps a WebSocket connection with a write lock, since notifications
// fan out from other clients' read loops.
type conn struct {
	ws       *websocket.Conn
	writeMtx sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	return c.ws.WriteJSON(v)
}
