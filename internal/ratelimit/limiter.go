package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig describes one service's token bucket: tokens accumulate at
// RequestsPerSecond up to BurstLimit.
type LimiterConfig struct {
	RequestsPerSecond float64
	BurstLimit        int
}

// LimiterStatus is a point-in-time snapshot for monitoring.
type LimiterStatus struct {
	AvailableTokens   float64 `json:"available_tokens"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstLimit        int     `json:"burst_limit"`
	Utilization       float64 `json:"utilization"`
}

// Limiter is a token bucket for one upstream service. rate.Limiter handles
// continuous refill and deficit sleeps internally, so Wait never busy-loops.
type Limiter struct {
	config LimiterConfig
	bucket *rate.Limiter
}

func NewLimiter(config LimiterConfig) *Limiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1.0
	}
	if config.BurstLimit <= 0 {
		config.BurstLimit = 1
	}
	return &Limiter{
		config: config,
		bucket: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstLimit),
	}
}

// Acquire consumes n tokens without blocking. It reports whether the tokens
// were available.
func (l *Limiter) Acquire(n int) bool {
	return l.bucket.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available, then consumes them. A cancelled
// context aborts the wait.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.bucket.WaitN(ctx, n)
}

func (l *Limiter) Status() LimiterStatus {
	tokens := l.bucket.Tokens()
	if tokens < 0 {
		tokens = 0
	}
	return LimiterStatus{
		AvailableTokens:   tokens,
		RequestsPerSecond: l.config.RequestsPerSecond,
		BurstLimit:        l.config.BurstLimit,
		Utilization:       1.0 - tokens/float64(l.config.BurstLimit),
	}
}
