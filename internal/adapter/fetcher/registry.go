package fetcher

import (
	"fmt"

	"news-orchestrator/internal/domain"
)

// Registry holds the fetchers enabled for this deployment, keyed by source.
// It is assembled once at startup; lookups never dispatch on raw strings.
type Registry struct {
	fetchers map[domain.Source]domain.Fetcher
	order    []domain.Source
}

func NewRegistry(fetchers ...domain.Fetcher) (*Registry, error) {
	r := &Registry{fetchers: make(map[domain.Source]domain.Fetcher, len(fetchers))}
	for _, f := range fetchers {
		source := f.Source()
		if !source.Valid() {
			return nil, fmt.Errorf("fetcher has unknown source: %q", source)
		}
		if _, exists := r.fetchers[source]; exists {
			return nil, fmt.Errorf("duplicate fetcher for source: %q", source)
		}
		r.fetchers[source] = f
		r.order = append(r.order, source)
	}
	return r, nil
}

// Get returns the fetcher for a source, or nil when the source is not enabled.
func (r *Registry) Get(source domain.Source) domain.Fetcher {
	return r.fetchers[source]
}

// All returns the enabled fetchers in registration order.
func (r *Registry) All() []domain.Fetcher {
	out := make([]domain.Fetcher, 0, len(r.order))
	for _, source := range r.order {
		out = append(out, r.fetchers[source])
	}
	return out
}

// Sources returns the enabled source keys in registration order.
func (r *Registry) Sources() []domain.Source {
	out := make([]domain.Source, len(r.order))
	copy(out, r.order)
	return out
}
