package ecdsa

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

func TestSignVerify(t *testing.T) {
	key, err := curve.NewScalarRandom(rand.Reader)
	require.NoError(t, err)
	public := key.ActOnBase()
	message := []byte("hello")

	sig := Sign(key, message)
	assert.True(t, sig.Verify(public, message))
	assert.False(t, sig.Verify(public, []byte("other")))

	wrong, err := curve.NewScalarRandom(rand.Reader)
	require.NoError(t, err)
	assert.False(t, sig.Verify(wrong.ActOnBase(), message))
}

func TestSignatureMarshalRoundTrip(t *testing.T) {
	key, err := curve.NewScalarRandom(rand.Reader)
	require.NoError(t, err)
	message := []byte("data")
	sig := Sign(key, message)

	data, err := sig.MarshalBinary()
	require.NoError(t, err)
	var out Signature
	require.NoError(t, out.UnmarshalBinary(data))
	assert.True(t, out.Verify(key.ActOnBase(), message))
}

func testLocalKey(t *testing.T) *LocalKey {
	t.Helper()
	share, err := curve.NewScalarRandom(rand.Reader)
	require.NoError(t, err)
	return &LocalKey{
		I:         2,
		Threshold: 1,
		PartyIDs:  party.Range(3),
		Share:     share,
		PublicShares: map[party.ID]*curve.Point{
			2: share.ActOnBase(),
		},
		PublicKey: share.ActOnBase(),
	}
}

func TestLocalKeyValidate(t *testing.T) {
	k := testLocalKey(t)
	require.NoError(t, k.Validate())

	bad := testLocalKey(t)
	bad.I = 4
	assert.Error(t, bad.Validate(), "party not in group")

	bad = testLocalKey(t)
	other, err := curve.NewScalarRandom(rand.Reader)
	require.NoError(t, err)
	bad.Share = other
	assert.Error(t, bad.Validate(), "share does not match public share")

	bad = testLocalKey(t)
	bad.Threshold = 3
	assert.Error(t, bad.Validate(), "threshold out of range")
}

func TestLocalKeyMarshalRoundTrip(t *testing.T) {
	k := testLocalKey(t)
	data, err := k.MarshalBinary()
	require.NoError(t, err)

	var out LocalKey
	require.NoError(t, out.UnmarshalBinary(data))
	require.NoError(t, out.Validate())
	assert.Equal(t, k.I, out.I)
	assert.Equal(t, k.PartyIDs, out.PartyIDs)
	assert.True(t, k.Share.Equal(out.Share))
	assert.True(t, k.PublicKey.Equal(out.PublicKey))
}
