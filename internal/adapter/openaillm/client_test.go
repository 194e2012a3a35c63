package openaillm

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComplete_OpenCircuitRejectsBeforeSpendingTokens(t *testing.T) {
	limiter := ratelimit.NewManager(map[string]ratelimit.ServiceConfig{
		"openai": {
			Limiter: ratelimit.LimiterConfig{RequestsPerSecond: 0.001, BurstLimit: 1},
			Breaker: ratelimit.BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute},
		},
	}, discardLogger())
	limiter.Breaker("openai").RecordFailure()

	client := NewClient("test-key", "gpt-4o-mini", 1, limiter, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "system", "user")
	require.ErrorIs(t, err, domain.ErrCircuitOpen)

	// The single burst token refills at ~17 minute intervals, so it is
	// still available only if the rejected call never reached the limiter.
	assert.True(t, limiter.Acquire("openai", 1))
}
