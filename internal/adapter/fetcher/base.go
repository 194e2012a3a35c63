package fetcher

import (
	"sync"
	"time"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
)

// healthTracker records per-fetcher request outcomes behind a mutex so Health
// snapshots can be taken while a fetch is in flight.
type healthTracker struct {
	source  domain.Source
	limiter *ratelimit.Manager

	mu          sync.Mutex
	lastRequest *time.Time
	errorCount  int
}

func newHealthTracker(source domain.Source, limiter *ratelimit.Manager) *healthTracker {
	return &healthTracker{source: source, limiter: limiter}
}

func (h *healthTracker) recordRequest() {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	h.lastRequest = &now
}

func (h *healthTracker) recordError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorCount++
}

func (h *healthTracker) snapshot() domain.FetcherHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	return domain.FetcherHealth{
		Source:          h.source,
		LastRequestTime: h.lastRequest,
		ErrorCount:      h.errorCount,
		CircuitOpen:     h.limiter.Breaker(string(h.source)).IsOpen(),
	}
}
