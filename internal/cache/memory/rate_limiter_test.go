package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_NPlusOneBlocked(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		dec, err := rl.Allow(ctx, "caller", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d", i+1)
		assert.Equal(t, 4-i, dec.Remaining)
	}

	dec, err := rl.Allow(ctx, "caller", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Zero(t, dec.Remaining)
}

func TestAllow_DeniedRequestNotCounted(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	_, err := rl.Allow(ctx, "caller", 1, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		dec, err := rl.Allow(ctx, "caller", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
	}

	stats := rl.Stats()
	assert.Equal(t, uint64(4), stats.TotalRequests)
	assert.Equal(t, uint64(3), stats.BlockedRequests)
}

func TestAllow_IdentifiersIsolated(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	_, err := rl.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	dec, err := rl.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestAllow_WindowExpiryFreesSlots(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	_, err := rl.Allow(ctx, "caller", 1, 20*time.Millisecond)
	require.NoError(t, err)
	dec, err := rl.Allow(ctx, "caller", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	time.Sleep(30 * time.Millisecond)
	dec, err = rl.Allow(ctx, "caller", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}
