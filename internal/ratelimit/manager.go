package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ServiceConfig pairs a token bucket and a breaker for one upstream.
type ServiceConfig struct {
	Limiter LimiterConfig
	Breaker BreakerConfig
}

// ServiceStatus is the combined snapshot exposed to the status API.
type ServiceStatus struct {
	Service string        `json:"service"`
	Limiter LimiterStatus `json:"limiter"`
	Breaker BreakerStatus `json:"breaker"`
}

// DefaultServiceConfigs holds per-service tuning: strict upstreams get tight
// buckets, permissive ones looser. Unknown services fall back to
// defaultServiceConfig.
func DefaultServiceConfigs() map[string]ServiceConfig {
	breaker := DefaultBreakerConfig()
	return map[string]ServiceConfig{
		"arxiv":       {Limiter: LimiterConfig{RequestsPerSecond: 0.33, BurstLimit: 3}, Breaker: breaker},
		"hackernews":  {Limiter: LimiterConfig{RequestsPerSecond: 1.0, BurstLimit: 10}, Breaker: breaker},
		"rss":         {Limiter: LimiterConfig{RequestsPerSecond: 0.5, BurstLimit: 5}, Breaker: breaker},
		"github":      {Limiter: LimiterConfig{RequestsPerSecond: 0.8, BurstLimit: 5}, Breaker: breaker},
		"huggingface": {Limiter: LimiterConfig{RequestsPerSecond: 0.5, BurstLimit: 5}, Breaker: breaker},
		"reddit":      {Limiter: LimiterConfig{RequestsPerSecond: 0.5, BurstLimit: 5}, Breaker: breaker},
		"openai":      {Limiter: LimiterConfig{RequestsPerSecond: 2.0, BurstLimit: 20}, Breaker: breaker},
	}
}

var defaultServiceConfig = ServiceConfig{
	Limiter: LimiterConfig{RequestsPerSecond: 1.0, BurstLimit: 5},
	Breaker: BreakerConfig{FailureThreshold: 5, Cooldown: 5 * time.Minute},
}

type service struct {
	limiter *Limiter
	breaker *Breaker
}

// Manager owns one limiter and one breaker per service key. It is constructed
// once at startup and passed by reference to whatever needs it; there is no
// package-level singleton.
type Manager struct {
	mu       sync.Mutex
	services map[string]*service
	configs  map[string]ServiceConfig
	logger   *slog.Logger
}

func NewManager(configs map[string]ServiceConfig, logger *slog.Logger) *Manager {
	if configs == nil {
		configs = DefaultServiceConfigs()
	}
	m := &Manager{
		services: make(map[string]*service, len(configs)),
		configs:  configs,
		logger:   logger,
	}
	for name, cfg := range configs {
		m.services[name] = &service{
			limiter: NewLimiter(cfg.Limiter),
			breaker: NewBreaker(cfg.Breaker),
		}
	}
	return m
}

// Acquire tries to take n tokens for the service without blocking.
func (m *Manager) Acquire(serviceName string, n int) bool {
	return m.get(serviceName).limiter.Acquire(n)
}

// Wait blocks until n tokens are available for the service.
func (m *Manager) Wait(ctx context.Context, serviceName string, n int) error {
	return m.get(serviceName).limiter.Wait(ctx, n)
}

// Breaker returns the circuit breaker for the service so callers can guard
// their calls and report outcomes.
func (m *Manager) Breaker(serviceName string) *Breaker {
	return m.get(serviceName).breaker
}

// Status returns a snapshot for every registered service.
func (m *Manager) Status() []ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]ServiceStatus, 0, len(m.services))
	for name, svc := range m.services {
		statuses = append(statuses, ServiceStatus{
			Service: name,
			Limiter: svc.limiter.Status(),
			Breaker: svc.breaker.Status(),
		})
	}
	return statuses
}

func (m *Manager) get(serviceName string) *service {
	m.mu.Lock()
	defer m.mu.Unlock()

	if svc, ok := m.services[serviceName]; ok {
		return svc
	}

	m.logger.Warn("rate_limiter_default_config",
		slog.String("service", serviceName))
	svc := &service{
		limiter: NewLimiter(defaultServiceConfig.Limiter),
		breaker: NewBreaker(defaultServiceConfig.Breaker),
	}
	m.services[serviceName] = svc
	return svc
}
