// Package wsrpc implements the relay transport as JSON-RPC 2.0 over a single
// WebSocket connection. Responses are correlated to requests through an
// atomic id counter; server pushes are fanned out to per-method subscribers,
// and buffered until the first subscriber appears so that protocol messages
// arriving between signup and run are not lost.
package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// DefaultRequestTimeout bounds the wait for a response when the caller's
// context carries no earlier deadline.
const DefaultRequestTimeout = 30 * time.Second

const subscriptionBuffer = 32

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHeader sets additional headers sent with the WebSocket handshake.
func WithHeader(header http.Header) Option {
	return func(c *Client) { c.header = header }
}

// Client implements transport.Transport over a WebSocket connection.
type Client struct {
	log     zerolog.Logger
	timeout time.Duration
	header  http.Header

	conn   *websocket.Conn
	nextID atomic.Uint64

	// writeMtx serializes writes to the connection.
	writeMtx sync.Mutex

	mtx     sync.Mutex
	pending map[uint64]chan *response
	subs    map[string][]chan transport.Notification
	// buffered holds notifications for methods without subscribers yet.
	buffered map[string][]transport.Notification
	closed   bool

	done chan struct{}
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to the relay at endpoint, e.g. "ws://localhost:8080/ws".
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		log:      zerolog.Nop(),
		timeout:  DefaultRequestTimeout,
		pending:  map[uint64]chan *response{},
		subs:     map[string][]chan transport.Notification{},
		buffered: map[string][]transport.Notification{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, c.header)
	if err != nil {
		return nil, fmt.Errorf("wsrpc: dial %s: %w", endpoint, err)
	}
	c.conn = conn
	c.log.Info().Str("endpoint", endpoint).Msg("connected to relay")

	go c.readLoop()
	return c, nil
}

// Call implements transport.Transport.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	id := c.nextID.Add(1)
	ch := make(chan *response, 1)

	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return transport.ErrClosed
	}
	c.pending[id] = ch
	c.mtx.Unlock()

	defer func() {
		c.mtx.Lock()
		delete(c.pending, id)
		c.mtx.Unlock()
	}()

	if err := c.write(&request{Jsonrpc: version, ID: &id, Method: method, Params: marshalParams(params)}); err != nil {
		return err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res, ok := <-ch:
		if !ok {
			return transport.ErrClosed
		}
		if res.Error != nil {
			return res.Error
		}
		if result != nil {
			if err := json.Unmarshal(res.Result, result); err != nil {
				return fmt.Errorf("wsrpc: %s: decoding result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("wsrpc: %s: timed out after %s", method, c.timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return transport.ErrClosed
	}
}

// Notify implements transport.Transport.
func (c *Client) Notify(_ context.Context, method string, params interface{}) error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return transport.ErrClosed
	}
	c.mtx.Unlock()
	return c.write(&request{Jsonrpc: version, Method: method, Params: marshalParams(params)})
}

// Subscribe implements transport.Transport.
func (c *Client) Subscribe(method string) (<-chan transport.Notification, func()) {
	ch := make(chan transport.Notification, subscriptionBuffer)

	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		close(ch)
		return ch, func() {}
	}
	// replay notifications received before anyone subscribed
	for _, n := range c.buffered[method] {
		select {
		case ch <- n:
		default:
		}
	}
	delete(c.buffered, method)
	c.subs[method] = append(c.subs[method], ch)
	c.mtx.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mtx.Lock()
			defer c.mtx.Unlock()
			subs := c.subs[method]
			for i, sub := range subs {
				if sub == ch {
					c.subs[method] = append(subs[:i], subs[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
	return ch, cancel
}

// Close implements transport.Transport.
func (c *Client) Close() error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	for method, subs := range c.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(c.subs, method)
	}
	c.mtx.Unlock()

	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug().Err(err).Msg("connection closed")
			_ = c.Close()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn().Err(err).Msg("discarding malformed frame")
			continue
		}
		switch {
		case env.isResponse():
			c.handleResponse(&env)
		case env.isNotification():
			c.handleNotification(&env)
		default:
			c.log.Warn().Msg("discarding frame which is neither response nor notification")
		}
	}
}

func (c *Client) handleResponse(env *envelope) {
	c.mtx.Lock()
	ch, ok := c.pending[*env.ID]
	delete(c.pending, *env.ID)
	c.mtx.Unlock()
	if !ok {
		c.log.Warn().Uint64("id", *env.ID).Msg("response for unknown request")
		return
	}
	ch <- &response{Jsonrpc: env.Jsonrpc, ID: env.ID, Result: env.Result, Error: env.Error}
}

func (c *Client) handleNotification(env *envelope) {
	n := transport.Notification{Method: env.Method, Params: env.Params}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	subs := c.subs[env.Method]
	if len(subs) == 0 {
		c.buffered[env.Method] = append(c.buffered[env.Method], n)
		return
	}
	for _, ch := range subs {
		select {
		case ch <- n:
		default:
			c.log.Warn().Str("method", env.Method).Msg("subscriber lagging, dropping notification")
		}
	}
}

func (c *Client) write(req *request) error {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("wsrpc: write: %w", err)
	}
	return nil
}

func marshalParams(params interface{}) json.RawMessage {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		// params are our own typed structs, this cannot fail at runtime
		panic(fmt.Sprintf("wsrpc: marshalling params: %v", err))
	}
	return data
}
