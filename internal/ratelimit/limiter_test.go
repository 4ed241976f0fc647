package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLimiterNeverBlocks(t *testing.T) {
	l := NewLimiter(Config{Enabled: false, RequestsPerMinute: 1, BurstSize: 1})
	for i := 0; i < 10; i++ {
		assert.True(t, l.TryAcquire())
	}
	assert.Zero(t, l.Stats().TotalRequests)
}

func TestTryAcquireRespectsBurst(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 1, BurstSize: 2})

	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())

	stats := l.Stats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
}

func TestAcquireHonoursContext(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 1, BurstSize: 1})
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, int64(1), l.Stats().BlockedRequests)
}

func TestAcquireRecordsWait(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 6000, BurstSize: 1})
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))

	stats := l.Stats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
	assert.Positive(t, stats.TotalWait)
}

func TestSetEnabled(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 1, BurstSize: 1})
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())

	l.SetEnabled(false)
	assert.True(t, l.TryAcquire())
	assert.False(t, l.Stats().Enabled)

	l.SetEnabled(true)
	assert.False(t, l.TryAcquire())
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Acquire(context.Background()))
	assert.True(t, l.TryAcquire())
	l.SetEnabled(true)
	assert.Equal(t, Stats{}, l.Stats())
}
