package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAcquireWithinBurst(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerSecond: 1.0, BurstLimit: 3})

	assert.True(t, l.Acquire(1))
	assert.True(t, l.Acquire(1))
	assert.True(t, l.Acquire(1))
	assert.False(t, l.Acquire(1), "burst exhausted, fourth acquire must fail")
}

func TestLimiterTokenConservation(t *testing.T) {
	// Over a window of T seconds, successful acquires never exceed
	// burst + rate*T.
	const ratePerSecond = 50.0
	const burst = 10
	l := NewLimiter(LimiterConfig{RequestsPerSecond: ratePerSecond, BurstLimit: burst})

	window := 200 * time.Millisecond
	deadline := time.Now().Add(window)
	acquired := 0
	for time.Now().Before(deadline) {
		if l.Acquire(1) {
			acquired++
		}
	}

	limit := burst + int(ratePerSecond*window.Seconds()) + 1
	assert.LessOrEqual(t, acquired, limit)
}

func TestLimiterWaitBlocksUntilTokenAvailable(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerSecond: 100.0, BurstLimit: 1})
	require.True(t, l.Acquire(1))

	start := time.Now()
	err := l.Wait(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerSecond: 0.01, BurstLimit: 1})
	require.True(t, l.Acquire(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, 1)
	assert.Error(t, err)
}

func TestLimiterStatus(t *testing.T) {
	l := NewLimiter(LimiterConfig{RequestsPerSecond: 2.0, BurstLimit: 4})

	status := l.Status()
	assert.Equal(t, 2.0, status.RequestsPerSecond)
	assert.Equal(t, 4, status.BurstLimit)
	assert.InDelta(t, 4.0, status.AvailableTokens, 0.1)

	l.Acquire(4)
	status = l.Status()
	assert.Less(t, status.AvailableTokens, 1.0)
	assert.Greater(t, status.Utilization, 0.7)
}
