package ratelimit

import (
	"sync"
	"time"

	"news-orchestrator/internal/domain"
)

// BreakerState represents the state of the circuit breaker.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig holds the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultBreakerConfig opens after 5 consecutive failures for a 5 minute
// cooldown.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         5 * time.Minute,
	}
}

// BreakerStatus is a point-in-time snapshot for monitoring.
type BreakerStatus struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	OpenedAt     *time.Time   `json:"opened_at,omitempty"`
}

// Breaker counts consecutive failures reported by callers and fast-fails
// further attempts during a cooldown window. The breaker performs no I/O
// itself; callers report outcomes via RecordSuccess/RecordFailure.
type Breaker struct {
	config          BreakerConfig
	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	lastFailureTime time.Time
}

func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 5 * time.Minute
	}
	return &Breaker{
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a call may proceed. While open and inside the
// cooldown window it returns domain.ErrCircuitOpen without any upstream
// contact; after the cooldown elapses one probe is let through (half-open).
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.lastFailureTime) < b.config.Cooldown {
			return domain.ErrCircuitOpen
		}
		b.state = StateHalfOpen
	}
	return nil
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
}

// RecordFailure counts a failure and opens the breaker once the threshold of
// consecutive failures is reached. A failed half-open probe reopens
// immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
	}
}

func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := BreakerStatus{
		State:        b.state,
		FailureCount: b.failureCount,
	}
	if b.state == StateOpen {
		openedAt := b.lastFailureTime
		status.OpenedAt = &openedAt
	}
	return status
}

// IsOpen reports whether the breaker currently refuses calls.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen && time.Since(b.lastFailureTime) < b.config.Cooldown
}
