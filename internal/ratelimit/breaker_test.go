package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-orchestrator/internal/domain"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 5, Cooldown: time.Minute})

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.NoError(t, b.Allow(), "breaker must stay closed below the threshold")
	}

	b.RecordFailure()
	err := b.Allow()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.True(t, b.IsOpen())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures stay below the threshold thanks to the reset.
	b.RecordFailure()
	b.RecordFailure()
	assert.NoError(t, b.Allow())
}

func TestBreakerHalfOpenProbeAfterCooldown(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: 20 * time.Millisecond})

	b.RecordFailure()
	require.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)

	// Cooldown elapsed: the next attempt is allowed through.
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.Status().State)

	// Success on the probe closes the breaker and resets the count.
	b.RecordSuccess()
	status := b.Status()
	assert.Equal(t, StateClosed, status.State)
	assert.Equal(t, 0, status.FailureCount)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: 20 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.ErrorIs(t, b.Allow(), domain.ErrCircuitOpen)
}

func TestManagerPerServiceIsolation(t *testing.T) {
	logger := discardLogger()
	m := NewManager(map[string]ServiceConfig{
		"arxiv": {
			Limiter: LimiterConfig{RequestsPerSecond: 1.0, BurstLimit: 1},
			Breaker: BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute},
		},
		"hackernews": {
			Limiter: LimiterConfig{RequestsPerSecond: 1.0, BurstLimit: 10},
			Breaker: BreakerConfig{FailureThreshold: 5, Cooldown: time.Minute},
		},
	}, logger)

	// Tripping arxiv must not affect hackernews.
	m.Breaker("arxiv").RecordFailure()
	assert.ErrorIs(t, m.Breaker("arxiv").Allow(), domain.ErrCircuitOpen)
	assert.NoError(t, m.Breaker("hackernews").Allow())

	// Exhausting arxiv's bucket must not affect hackernews.
	assert.True(t, m.Acquire("arxiv", 1))
	assert.False(t, m.Acquire("arxiv", 1))
	assert.True(t, m.Acquire("hackernews", 1))
}

func TestManagerUnknownServiceGetsDefaults(t *testing.T) {
	m := NewManager(map[string]ServiceConfig{}, discardLogger())

	assert.True(t, m.Acquire("mystery-api", 1))
	assert.NoError(t, m.Breaker("mystery-api").Allow())

	statuses := m.Status()
	require.Len(t, statuses, 1)
	assert.Equal(t, "mystery-api", statuses[0].Service)
}
