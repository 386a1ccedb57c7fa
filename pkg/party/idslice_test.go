package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDSliceSorts(t *testing.T) {
	ids := NewIDSlice([]ID{3, 1, 2})
	assert.Equal(t, IDSlice{1, 2, 3}, ids)
	assert.True(t, ids.Valid())
}

func TestRange(t *testing.T) {
	assert.Equal(t, IDSlice{1, 2, 3, 4}, Range(4))
	assert.True(t, Range(4).Valid())
}

func TestValid(t *testing.T) {
	assert.False(t, IDSlice{1, 1, 2}.Valid(), "duplicates are invalid")
	assert.False(t, IDSlice{0, 1}.Valid(), "zero ID is invalid")
	assert.False(t, IDSlice{2, 1}.Valid(), "unsorted is invalid")
	assert.True(t, IDSlice{}.Valid())
}

func TestContains(t *testing.T) {
	ids := Range(5)
	assert.True(t, ids.Contains(1, 5))
	assert.False(t, ids.Contains(6))
	assert.False(t, ids.Contains(0))
}

func TestRemove(t *testing.T) {
	ids := Range(3)
	out := ids.Remove(2)
	assert.Equal(t, IDSlice{1, 3}, out)
	// the original is untouched
	assert.Equal(t, IDSlice{1, 2, 3}, ids)
	assert.Equal(t, IDSlice{1, 3}, out.Remove(7))
}

func TestIDBytesRoundTrip(t *testing.T) {
	for _, id := range []ID{1, 255, 256, MAX} {
		require.Equal(t, id, FromBytes(id.Bytes()))
	}
}
