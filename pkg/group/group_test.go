package group

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

// fakeTransport answers Call from canned responses and records the requests.
type fakeTransport struct {
	calls    []string
	params   []interface{}
	response interface{}
	err      error
}

func (f *fakeTransport) Call(_ context.Context, method string, params, result interface{}) error {
	f.calls = append(f.calls, method)
	f.params = append(f.params, params)
	if f.err != nil {
		return f.err
	}
	data, err := json.Marshal(f.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}

func (f *fakeTransport) Notify(context.Context, string, interface{}) error { return nil }

func (f *fakeTransport) Subscribe(string) (<-chan transport.Notification, func()) {
	ch := make(chan transport.Notification)
	return ch, func() {}
}

func (f *fakeTransport) Close() error { return nil }

func TestCreate(t *testing.T) {
	id := uuid.New()
	ft := &fakeTransport{response: transport.GroupResponse{
		GroupID:     id.String(),
		Parameters:  transport.Parameters{Parties: 3, Threshold: 1},
		PartyNumber: 1,
	}}
	r := NewRegistry(ft, zerolog.Nop())

	g, err := r.Create(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.EqualValues(t, 3, g.Parties)
	assert.EqualValues(t, 1, g.Threshold)
	assert.EqualValues(t, 1, g.PartyNumber)
	assert.Equal(t, party.IDSlice{1, 2, 3}, g.PartyIDs())
	assert.Equal(t, []string{transport.MethodGroupCreate}, ft.calls)
}

func TestCreateInvalidThreshold(t *testing.T) {
	r := NewRegistry(&fakeTransport{}, zerolog.Nop())

	for _, tc := range []struct{ n, t uint16 }{
		{3, 0},
		{3, 3},
		{3, 4},
		{1, 1},
	} {
		ft := &fakeTransport{}
		r = NewRegistry(ft, zerolog.Nop())
		_, err := r.Create(context.Background(), tc.n, tc.t)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "n=%d t=%d", tc.n, tc.t)
		assert.Empty(t, ft.calls, "invalid parameters must not reach the relay")
	}
}

func TestJoin(t *testing.T) {
	id := uuid.New()
	ft := &fakeTransport{response: transport.GroupResponse{
		GroupID:     id.String(),
		Parameters:  transport.Parameters{Parties: 3, Threshold: 1},
		PartyNumber: 2,
	}}
	r := NewRegistry(ft, zerolog.Nop())

	g, err := r.Join(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, g.PartyNumber)

	req := ft.params[0].(transport.GroupJoinRequest)
	assert.Equal(t, id.String(), req.GroupID)
}

func TestJoinErrors(t *testing.T) {
	for _, tc := range []struct {
		code int
		want error
	}{
		{transport.CodeNotFound, ErrNotFound},
		{transport.CodeGroupFull, ErrFull},
	} {
		ft := &fakeTransport{err: &transport.RPCError{Code: tc.code, Message: "nope"}}
		r := NewRegistry(ft, zerolog.Nop())
		_, err := r.Join(context.Background(), uuid.New())
		assert.ErrorIs(t, err, tc.want)
	}

	// unknown codes pass through
	ft := &fakeTransport{err: &transport.RPCError{Code: -32000, Message: "internal"}}
	r := NewRegistry(ft, zerolog.Nop())
	_, err := r.Join(context.Background(), uuid.New())
	var rpcErr *transport.RPCError
	assert.ErrorAs(t, err, &rpcErr)
}

func TestInvalidRelayResponses(t *testing.T) {
	// invalid uuid
	ft := &fakeTransport{response: transport.GroupResponse{GroupID: "nope", PartyNumber: 1}}
	r := NewRegistry(ft, zerolog.Nop())
	_, err := r.Create(context.Background(), 3, 1)
	assert.Error(t, err)

	// party number outside the group
	ft = &fakeTransport{response: transport.GroupResponse{
		GroupID:     uuid.New().String(),
		Parameters:  transport.Parameters{Parties: 3, Threshold: 1},
		PartyNumber: 4,
	}}
	r = NewRegistry(ft, zerolog.Nop())
	_, err = r.Create(context.Background(), 3, 1)
	assert.Error(t, err)
}
