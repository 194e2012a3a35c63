package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned without contacting the upstream while a
	// source's circuit breaker is in its cooldown window.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidInput marks input rejected before any upstream call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTaskNotFound is returned when a manual trigger names an unknown task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskRunning is returned when a task is triggered while a previous
	// run of the same task is still in flight.
	ErrTaskRunning = errors.New("task is already running")

	// ErrDimensionMismatch signals that the embedding provider returned
	// vectors of a different dimension than the persisted schema expects.
	// This is a configuration fault, not a retryable condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// FetchError wraps a failure to fetch from one source after retries are
// exhausted. One source failing never aborts a whole ingestion run.
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ScoringError wraps an LLM scoring failure, including malformed or
// out-of-bounds structured output. Malformed output is never silently clamped.
type ScoringError struct {
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("scoring failed: %s", e.Reason)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// EmbeddingError wraps an embedding backend failure after retries are
// exhausted. The caller decides whether to degrade or abort; this layer never
// falls back to a zero vector.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
