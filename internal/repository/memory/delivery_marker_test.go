package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryMarker(t *testing.T) {
	ctx := context.Background()
	m := NewDeliveryMarker(time.Minute)

	seen, err := m.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, m.MarkProcessed(ctx, "evt_1"))

	seen, err = m.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, _ = m.IsProcessed(ctx, "evt_2")
	assert.False(t, seen)
}

func TestDeliveryMarker_Expires(t *testing.T) {
	ctx := context.Background()
	m := NewDeliveryMarker(20 * time.Millisecond)

	require.NoError(t, m.MarkProcessed(ctx, "evt_1"))
	time.Sleep(40 * time.Millisecond)

	seen, err := m.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}
