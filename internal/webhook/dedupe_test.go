package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "unmarked event is not seen")

	require.NoError(t, d.Mark(ctx, "evt-1"))

	seen, err = d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.Seen(ctx, "evt-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryDeduperSeenDoesNotMark(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	ctx := context.Background()

	_, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "checking must not record the event")
}

func TestMemoryDeduperExpiry(t *testing.T) {
	d := NewMemoryDeduper(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, d.Mark(ctx, "evt-1"))

	time.Sleep(20 * time.Millisecond)

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "expired entries are forgotten")
}
