package relay_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/internal/relay"
	"github.com/taurusgroup/mpc-client/pkg/transport"
	"github.com/taurusgroup/mpc-client/pkg/transport/wsrpc"
)

func startRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(relay.NewServer(zerolog.Nop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, endpoint string) *wsrpc.Client {
	t.Helper()
	c, err := wsrpc.Dial(context.Background(), endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func createGroup(t *testing.T, c *wsrpc.Client, n, threshold uint16) transport.GroupResponse {
	t.Helper()
	var res transport.GroupResponse
	req := transport.GroupCreateRequest{Parameters: transport.Parameters{Parties: n, Threshold: threshold}}
	require.NoError(t, c.Call(context.Background(), transport.MethodGroupCreate, req, &res))
	return res
}

func TestGroupNumbering(t *testing.T) {
	endpoint := startRelay(t)
	creator := dial(t, endpoint)

	created := createGroup(t, creator, 3, 1)
	assert.EqualValues(t, 1, created.PartyNumber)

	// join order determines the numbers
	for want := uint16(2); want <= 3; want++ {
		c := dial(t, endpoint)
		var res transport.GroupResponse
		req := transport.GroupJoinRequest{GroupID: created.GroupID}
		require.NoError(t, c.Call(context.Background(), transport.MethodGroupJoin, req, &res))
		assert.Equal(t, want, res.PartyNumber)
	}

	// the group is full now
	c := dial(t, endpoint)
	err := c.Call(context.Background(), transport.MethodGroupJoin, transport.GroupJoinRequest{GroupID: created.GroupID}, nil)
	var rpcErr *transport.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, transport.CodeGroupFull, rpcErr.Code)

	// unknown group
	err = c.Call(context.Background(), transport.MethodGroupJoin, transport.GroupJoinRequest{GroupID: "7ec432cf-5a9d-4dd9-95c0-d66163b1e0d2"}, nil)
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, transport.CodeNotFound, rpcErr.Code)
}

func TestSessionQuorumAndForwarding(t *testing.T) {
	endpoint := startRelay(t)

	creator := dial(t, endpoint)
	created := createGroup(t, creator, 3, 1)

	second := dial(t, endpoint)
	third := dial(t, endpoint)
	for _, c := range []*wsrpc.Client{second, third} {
		require.NoError(t, c.Call(context.Background(), transport.MethodGroupJoin, transport.GroupJoinRequest{GroupID: created.GroupID}, nil))
	}

	readyChans := make([]<-chan transport.Notification, 0, 3)
	for _, c := range []*wsrpc.Client{creator, second, third} {
		ch, cancel := c.Subscribe(transport.EventSessionReady)
		t.Cleanup(cancel)
		readyChans = append(readyChans, ch)
	}

	// keygen needs all three, so the session is not ready before the last signup
	var sess transport.SessionResponse
	req := transport.SessionCreateRequest{GroupID: created.GroupID, Kind: "keygen"}
	require.NoError(t, creator.Call(context.Background(), transport.MethodSessionCreate, req, &sess))

	select {
	case <-readyChans[0]:
		t.Fatal("session_ready before quorum")
	case <-time.After(50 * time.Millisecond):
	}

	signup := transport.SessionSignupRequest{GroupID: created.GroupID, SessionID: sess.SessionID}
	require.NoError(t, second.Call(context.Background(), transport.MethodSessionSignup, signup, nil))
	require.NoError(t, third.Call(context.Background(), transport.MethodSessionSignup, signup, nil))

	for i, ch := range readyChans {
		select {
		case n := <-ch:
			var note transport.SessionReadyNotification
			require.NoError(t, json.Unmarshal(n.Params, &note))
			assert.Equal(t, sess.SessionID, note.SessionID)
		case <-time.After(time.Second):
			t.Fatalf("party %d did not observe session_ready", i+1)
		}
	}

	// broadcast from party 1 reaches 2 and 3 with the sender filled in
	msgChans := make([]<-chan transport.Notification, 0, 3)
	for _, c := range []*wsrpc.Client{creator, second, third} {
		ch, cancel := c.Subscribe(transport.EventSessionMessage)
		t.Cleanup(cancel)
		msgChans = append(msgChans, ch)
	}

	send := transport.SessionMessageRequest{
		GroupID:   created.GroupID,
		SessionID: sess.SessionID,
		Message:   []byte("payload"),
	}
	require.NoError(t, creator.Notify(context.Background(), transport.MethodSessionMessage, send))

	for _, ch := range msgChans[1:] {
		select {
		case n := <-ch:
			var note transport.SessionMessageNotification
			require.NoError(t, json.Unmarshal(n.Params, &note))
			assert.EqualValues(t, 1, note.Sender)
			assert.Equal(t, []byte("payload"), note.Message)
		case <-time.After(time.Second):
			t.Fatal("broadcast not forwarded")
		}
	}
	select {
	case <-msgChans[0]:
		t.Fatal("broadcast echoed to its sender")
	case <-time.After(50 * time.Millisecond):
	}

	// unicast reaches only its receiver
	receiver := uint16(3)
	send.Receiver = &receiver
	require.NoError(t, second.Notify(context.Background(), transport.MethodSessionMessage, send))

	select {
	case n := <-msgChans[2]:
		var note transport.SessionMessageNotification
		require.NoError(t, json.Unmarshal(n.Params, &note))
		assert.EqualValues(t, 2, note.Sender)
		require.NotNil(t, note.Receiver)
		assert.EqualValues(t, 3, *note.Receiver)
	case <-time.After(time.Second):
		t.Fatal("unicast not forwarded")
	}
	select {
	case <-msgChans[0]:
		t.Fatal("unicast delivered to a third party")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignSessionQuorum(t *testing.T) {
	endpoint := startRelay(t)

	creator := dial(t, endpoint)
	created := createGroup(t, creator, 3, 1)
	second := dial(t, endpoint)
	require.NoError(t, second.Call(context.Background(), transport.MethodGroupJoin, transport.GroupJoinRequest{GroupID: created.GroupID}, nil))

	readyCh, cancel := creator.Subscribe(transport.EventSessionReady)
	defer cancel()

	// sign needs t+1 = 2 parties: the creator plus one login
	var sess transport.SessionResponse
	req := transport.SessionCreateRequest{GroupID: created.GroupID, Kind: "sign", Value: json.RawMessage(`"bWVzc2FnZQ=="`)}
	require.NoError(t, creator.Call(context.Background(), transport.MethodSessionCreate, req, &sess))

	login := transport.SessionLoginRequest{GroupID: created.GroupID, SessionID: sess.SessionID, PartyNumber: 2}
	require.NoError(t, second.Call(context.Background(), transport.MethodSessionLogin, login, nil))

	select {
	case <-readyCh:
	case <-time.After(time.Second):
		t.Fatal("sign session did not become ready at t+1 participants")
	}
}
