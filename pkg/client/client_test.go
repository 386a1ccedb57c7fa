package client_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/taurusgroup/mpc-client/internal/relay"
	"github.com/taurusgroup/mpc-client/pkg/client"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/group"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/session"
	"github.com/taurusgroup/mpc-client/protocols/example"
)

func startRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(relay.NewServer(zerolog.Nop()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// testGroup is a connected 3-party group with n=3, t=1.
type testGroup struct {
	clients map[party.ID]*client.Client
	groupID uuid.UUID
}

func newTestGroup(t *testing.T, opts ...client.Option) *testGroup {
	t.Helper()
	endpoint := startRelay(t)
	ctx := context.Background()

	clients := map[party.ID]*client.Client{}
	first, err := client.Connect(ctx, endpoint, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	g, err := first.GroupCreate(ctx, 3, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, g.PartyNumber)
	clients[1] = first

	for i := party.ID(2); i <= 3; i++ {
		c, err := client.Connect(ctx, endpoint, opts...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		joined, err := c.GroupJoin(ctx, g.ID)
		require.NoError(t, err)
		require.Equal(t, i, joined.PartyNumber)
		clients[i] = c
	}
	return &testGroup{clients: clients, groupID: g.ID}
}

// keygen runs a full keygen session across all three parties.
func (tg *testGroup) keygen(t *testing.T) map[party.ID]*ecdsa.LocalKey {
	t.Helper()
	ctx := context.Background()

	sess, err := tg.clients[1].SessionCreate(ctx, tg.groupID, session.KindKeygen, nil)
	require.NoError(t, err)
	for _, id := range []party.ID{2, 3} {
		_, err := tg.clients[id].SessionSignup(ctx, tg.groupID, sess.ID)
		require.NoError(t, err)
	}

	var mtx sync.Mutex
	keys := map[party.ID]*ecdsa.LocalKey{}
	var g errgroup.Group
	for id, c := range tg.clients {
		id, c := id, c
		g.Go(func() error {
			key, err := c.Keygen(ctx, tg.groupID, sess.ID, id, 3, 1)
			if err != nil {
				return err
			}
			mtx.Lock()
			keys[id] = key
			mtx.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	return keys
}

// sign runs a sign session among the given parties; the first one creates it.
func (tg *testGroup) sign(t *testing.T, keys map[party.ID]*ecdsa.LocalKey, signers party.IDSlice, message []byte) map[party.ID]*ecdsa.Signature {
	t.Helper()
	ctx := context.Background()

	creator := signers[0]
	sess, err := tg.clients[creator].SessionCreate(ctx, tg.groupID, session.KindSign, message)
	require.NoError(t, err)
	for _, id := range signers[1:] {
		_, err := tg.clients[id].SessionLogin(ctx, tg.groupID, sess.ID, id)
		require.NoError(t, err)
	}

	var mtx sync.Mutex
	sigs := map[party.ID]*ecdsa.Signature{}
	var g errgroup.Group
	for _, id := range signers {
		id := id
		g.Go(func() error {
			sig, err := tg.clients[id].Sign(ctx, tg.groupID, sess.ID, keys[id], signers, message)
			if err != nil {
				return err
			}
			mtx.Lock()
			sigs[id] = sig
			mtx.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	return sigs
}

func TestKeygenThenSign(t *testing.T) {
	tg := newTestGroup(t)
	keys := tg.keygen(t)

	require.Len(t, keys, 3)
	seen := party.IDSlice{}
	for id, key := range keys {
		require.NoError(t, key.Validate())
		assert.Equal(t, id, key.I)
		assert.True(t, keys[1].PublicKey.Equal(key.PublicKey), "public key must be shared")
		seen = append(seen, key.I)
	}
	assert.ElementsMatch(t, party.IDSlice{1, 2, 3}, seen)

	message := []byte("integration message")

	// threshold+1 = 2 signers, then the other pair, then the same pair again:
	// every run must independently verify
	for _, signers := range []party.IDSlice{{1, 2}, {2, 3}, {1, 2}} {
		sigs := tg.sign(t, keys, signers, message)
		require.Len(t, sigs, len(signers))
		for id, sig := range sigs {
			assert.True(t, sig.Verify(keys[1].PublicKey, message), "signature of party %d", id)
		}
	}
}

func TestSignRejectsMismatchedPartyNumber(t *testing.T) {
	tg := newTestGroup(t)
	keys := tg.keygen(t)
	ctx := context.Background()

	sess, err := tg.clients[1].SessionCreate(ctx, tg.groupID, session.KindSign, []byte("m"))
	require.NoError(t, err)

	// party 1 presenting party 2's key share must be rejected locally
	_, err = tg.clients[1].Sign(ctx, tg.groupID, sess.ID, keys[2], party.IDSlice{1, 2}, []byte("m"))
	assert.ErrorContains(t, err, "does not match")
}

func TestRunBeforeQuorum(t *testing.T) {
	tg := newTestGroup(t)
	ctx := context.Background()

	sess, err := tg.clients[1].SessionCreate(ctx, tg.groupID, session.KindKeygen, nil)
	require.NoError(t, err)

	// nobody else signed up yet
	_, err = sess.Run(ctx, example.StartKeygen(1, party.Range(3), 1))
	assert.ErrorIs(t, err, session.ErrQuorumNotMet)
	assert.Equal(t, session.AwaitingQuorum, sess.State())
}

func TestAbortPropagates(t *testing.T) {
	// a round timeout would be a different sentinel, so a fast failure here
	// proves the abort was propagated rather than timed out
	tg := newTestGroup(t, client.WithRoundTimeout(5*time.Second))
	ctx := context.Background()

	sess1, err := tg.clients[1].SessionCreate(ctx, tg.groupID, session.KindKeygen, nil)
	require.NoError(t, err)
	sess2, err := tg.clients[2].SessionSignup(ctx, tg.groupID, sess1.ID)
	require.NoError(t, err)
	sess3, err := tg.clients[3].SessionSignup(ctx, tg.groupID, sess1.ID)
	require.NoError(t, err)

	require.NoError(t, sess3.AwaitReady(ctx))
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	var g errgroup.Group
	g.Go(func() error {
		_, err := sess3.Run(cancelled, example.StartKeygen(3, party.Range(3), 1))
		if !assert.ErrorIs(t, err, session.ErrAborted) {
			return err
		}
		return nil
	})
	for _, sess := range []*session.Session{sess1, sess2} {
		sess := sess
		id := sess.PartyNumber
		g.Go(func() error {
			if err := sess.AwaitReady(ctx); err != nil {
				return err
			}
			_, err := sess.Run(ctx, example.StartKeygen(id, party.Range(3), 1))
			if !assert.ErrorIs(t, err, session.ErrAborted) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestOnSessionCreated(t *testing.T) {
	tg := newTestGroup(t)
	ctx := context.Background()

	events := make(chan client.SessionInfo, 2)
	tg.clients[2].OnSessionCreated(func(info client.SessionInfo) { events <- info })
	tg.clients[2].OnSessionCreated(func(info client.SessionInfo) { events <- info })

	sess, err := tg.clients[1].SessionCreate(ctx, tg.groupID, session.KindKeygen, nil)
	require.NoError(t, err)

	// both registered handlers observe the event
	for i := 0; i < 2; i++ {
		select {
		case info := <-events:
			assert.Equal(t, tg.groupID, info.GroupID)
			assert.Equal(t, sess.ID, info.SessionID)
			assert.Equal(t, session.KindKeygen, info.Kind)
		case <-time.After(time.Second):
			t.Fatal("session_created event not delivered")
		}
	}
}

func TestGroupValidation(t *testing.T) {
	endpoint := startRelay(t)
	c, err := client.Connect(context.Background(), endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.GroupCreate(context.Background(), 3, 3)
	assert.ErrorIs(t, err, group.ErrInvalidThreshold)

	_, err = c.GroupJoin(context.Background(), uuid.New())
	assert.ErrorIs(t, err, group.ErrNotFound)
}
