// Package transport defines the connection to the relay: a request/response
// and notification abstraction over a single persistent connection, together
// with the typed messages of the relay protocol.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by all operations once the connection is closed,
// whether locally or by the relay.
var ErrClosed = errors.New("transport: connection closed")

// Transport is a bidirectional connection to the relay. Implementations must
// be safe for concurrent use.
type Transport interface {
	// Call sends a request and decodes the relay's response into result,
	// which may be nil when the caller only cares about success. Relay-side
	// failures are returned as *RPCError.
	Call(ctx context.Context, method string, params, result interface{}) error

	// Notify sends a request without expecting a response.
	Notify(ctx context.Context, method string, params interface{}) error

	// Subscribe returns a channel of notifications for the given method.
	// Notifications received before the first subscription are buffered and
	// replayed to the first subscriber. The returned function cancels the
	// subscription and closes the channel.
	Subscribe(method string) (<-chan Notification, func())

	// Close terminates the connection. Pending calls fail with ErrClosed.
	Close() error
}

// Notification is a server-initiated message, a request without an id.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Relay error codes, carried in RPCError.Code.
const (
	// CodeNotFound indicates an unknown group or session id.
	CodeNotFound = -32004
	// CodeGroupFull indicates a join attempt on a group which already has
	// all its parties.
	CodeGroupFull = -32005
)

// RPCError is an error returned by the relay.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return fmt.Sprintf("transport: rpc error %d: %s", e.Code, e.Message)
}
