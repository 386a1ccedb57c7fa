package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/pkg/party"
)

func TestHashDeterministic(t *testing.T) {
	h1, h2 := New(), New()
	require.NoError(t, h1.WriteAny([]byte("data"), uint16(3), party.Range(3)))
	require.NoError(t, h2.WriteAny([]byte("data"), uint16(3), party.Range(3)))
	assert.Equal(t, h1.Sum(), h2.Sum())
}

func TestHashDomainSeparation(t *testing.T) {
	h1, h2 := New(), New()
	require.NoError(t, h1.WriteAny(BytesWithDomain{"A", []byte("x")}))
	require.NoError(t, h2.WriteAny(BytesWithDomain{"B", []byte("x")}))
	assert.NotEqual(t, h1.Sum(), h2.Sum())
}

func TestHashWriteOrderMatters(t *testing.T) {
	h1, h2 := New(), New()
	require.NoError(t, h1.WriteAny([]byte("a"), []byte("b")))
	require.NoError(t, h2.WriteAny([]byte("b"), []byte("a")))
	assert.NotEqual(t, h1.Sum(), h2.Sum())
}

func TestHashClone(t *testing.T) {
	h := New()
	require.NoError(t, h.WriteAny([]byte("common")))
	c := h.Clone()
	assert.Equal(t, h.Sum(), c.Sum())

	require.NoError(t, c.WriteAny([]byte("extra")))
	assert.NotEqual(t, h.Sum(), c.Sum())
}

func TestHashUnsupportedType(t *testing.T) {
	assert.Error(t, New().WriteAny(42))
}
