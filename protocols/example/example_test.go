package example

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/internal/test"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
	"github.com/taurusgroup/mpc-client/protocols/example/xor"
)

func TestXOR(t *testing.T) {
	N := 5
	partyIDs := party.Range(N)
	n := test.NewNetwork(partyIDs)

	var mtx sync.Mutex
	results := map[party.ID]xor.Result{}

	var wg sync.WaitGroup
	wg.Add(N)
	for _, id := range partyIDs {
		go func(id party.ID) {
			defer wg.Done()
			h, err := protocol.NewHandler(StartXOR(id, partyIDs), []byte("xor-session"))
			require.NoError(t, err)
			test.HandlerLoop(id, h, n)
			r, err := h.Result()
			require.NoError(t, err)
			require.IsType(t, xor.Result{}, r)
			mtx.Lock()
			results[id] = r.(xor.Result)
			mtx.Unlock()
		}(id)
	}
	wg.Wait()

	require.Len(t, results, N)
	first := results[1]
	assert.Len(t, first, 32)
	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func runKeygen(t *testing.T, partyIDs party.IDSlice, threshold int, sessionID []byte) map[party.ID]*ecdsa.LocalKey {
	t.Helper()
	n := test.NewNetwork(partyIDs)

	var mtx sync.Mutex
	keys := map[party.ID]*ecdsa.LocalKey{}

	var wg sync.WaitGroup
	wg.Add(len(partyIDs))
	for _, id := range partyIDs {
		go func(id party.ID) {
			defer wg.Done()
			h, err := protocol.NewHandler(StartKeygen(id, partyIDs, threshold), sessionID)
			require.NoError(t, err)
			test.HandlerLoop(id, h, n)
			r, err := h.Result()
			require.NoError(t, err)
			require.IsType(t, &ecdsa.LocalKey{}, r)
			mtx.Lock()
			keys[id] = r.(*ecdsa.LocalKey)
			mtx.Unlock()
		}(id)
	}
	wg.Wait()
	return keys
}

func runSign(t *testing.T, keys map[party.ID]*ecdsa.LocalKey, signers party.IDSlice, message []byte, sessionID []byte) map[party.ID]*ecdsa.Signature {
	t.Helper()
	n := test.NewNetwork(signers)

	var mtx sync.Mutex
	sigs := map[party.ID]*ecdsa.Signature{}

	var wg sync.WaitGroup
	wg.Add(len(signers))
	for _, id := range signers {
		go func(id party.ID) {
			defer wg.Done()
			h, err := protocol.NewHandler(StartSign(keys[id], signers, message), sessionID)
			require.NoError(t, err)
			test.HandlerLoop(id, h, n)
			r, err := h.Result()
			require.NoError(t, err)
			require.IsType(t, &ecdsa.Signature{}, r)
			mtx.Lock()
			sigs[id] = r.(*ecdsa.Signature)
			mtx.Unlock()
		}(id)
	}
	wg.Wait()
	return sigs
}

func TestKeygenAndSign(t *testing.T) {
	N := 3
	T := 1
	partyIDs := party.Range(N)

	keys := runKeygen(t, partyIDs, T, []byte("keygen-session"))
	require.Len(t, keys, N)
	for id, key := range keys {
		require.NoError(t, key.Validate())
		assert.Equal(t, id, key.I)
		assert.True(t, keys[1].PublicKey.Equal(key.PublicKey), "all parties must agree on the public key")
	}

	message := []byte("hello threshold world")

	// any threshold+1 subset can sign
	for _, signers := range []party.IDSlice{{1, 2}, {2, 3}, {1, 2, 3}} {
		sigs := runSign(t, keys, signers, message, []byte("sign-session"))
		require.Len(t, sigs, len(signers))
		for _, sig := range sigs {
			assert.True(t, sig.Verify(keys[1].PublicKey, message))
		}
	}
}

func TestSignRejectsBadConfig(t *testing.T) {
	partyIDs := party.Range(3)
	keys := runKeygen(t, partyIDs, 1, []byte("keygen-session-2"))

	// too few signers
	_, err := protocol.NewHandler(StartSign(keys[1], party.IDSlice{1}, []byte("msg")), nil)
	assert.Error(t, err)

	// signer outside the group
	_, err = protocol.NewHandler(StartSign(keys[1], party.IDSlice{1, 4}, []byte("msg")), nil)
	assert.Error(t, err)

	// empty message
	_, err = protocol.NewHandler(StartSign(keys[1], party.IDSlice{1, 2}, nil), nil)
	assert.Error(t, err)
}
