// Package source keeps the set of configured providers and resolves the
// subset a run should cover.
package source

import (
	"fmt"

	"OsintGraph/internal/ports"
)

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	order     []string
	providers map[string]ports.SourceProvider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]ports.SourceProvider{}}
}

// Register adds or replaces a provider, preserving registration order.
func (r *Registry) Register(provider ports.SourceProvider) {
	if r.providers == nil {
		r.providers = map[string]ports.SourceProvider{}
	}
	name := provider.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceProvider, error) {
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Select returns the providers for the given names, or every registered
// provider when names is empty.
func (r *Registry) Select(names []string) ([]ports.SourceProvider, error) {
	if len(names) == 0 {
		all := make([]ports.SourceProvider, 0, len(r.order))
		for _, name := range r.order {
			all = append(all, r.providers[name])
		}
		return all, nil
	}

	selected := make([]ports.SourceProvider, 0, len(names))
	for _, name := range names {
		provider, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, provider)
	}
	return selected, nil
}
