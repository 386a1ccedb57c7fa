package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDuplicates(t *testing.T) {
	var q queue
	require.NoError(t, q.Store(&Message{From: 1, RoundNumber: 2}))
	assert.ErrorIs(t, q.Store(&Message{From: 1, RoundNumber: 2}), ErrDuplicate)
	require.NoError(t, q.Store(&Message{From: 1, RoundNumber: 3}))
	require.NoError(t, q.Store(&Message{From: 2, RoundNumber: 2}))

	assert.True(t, q.Has(2, 1))
	assert.False(t, q.Has(2, 3))
}

func TestQueueGetSortsBySender(t *testing.T) {
	var q queue
	require.NoError(t, q.Store(&Message{From: 3, RoundNumber: 2}))
	require.NoError(t, q.Store(&Message{From: 1, RoundNumber: 2}))
	require.NoError(t, q.Store(&Message{From: 2, RoundNumber: 2}))
	require.NoError(t, q.Store(&Message{From: 1, RoundNumber: 3}))

	msgs := q.Get(2)
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		assert.EqualValues(t, i+1, msg.From)
	}

	// round 2 messages are drained, round 3 remains
	assert.Empty(t, q.Get(2))
	assert.True(t, q.Has(3, 1))
}
