package domain

import (
	"context"
	"time"
)

// FetcherHealth is the introspection snapshot every fetch adapter exposes for
// operational visibility.
type FetcherHealth struct {
	Source          Source     `json:"source"`
	LastRequestTime *time.Time `json:"last_request_time,omitempty"`
	ErrorCount      int        `json:"error_count"`
	CircuitOpen     bool       `json:"circuit_open"`
}

// Fetcher is the capability interface every source adapter implements. The
// registry of fetchers is built once at startup; the pipeline never dispatches
// on source strings at call sites.
type Fetcher interface {
	Source() Source
	Fetch(ctx context.Context, maxItems int) ([]Article, error)
	Health() FetcherHealth
}
