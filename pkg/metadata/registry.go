package metadata

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry holds the providers known to the process. It is built at startup and
// passed to the components that need it.
type Registry struct {
	mu           sync.RWMutex
	providers    map[string]Provider
	registered   []string
	defaultOrder []string
}

// NewRegistry returns an empty registry. defaultOrder lists the slugs that come first
// when a library does not pick its own providers. Registered providers missing from
// it follow in registration order.
func NewRegistry(defaultOrder []string) *Registry {
	return &Registry{
		providers:    map[string]Provider{},
		defaultOrder: defaultOrder,
	}
}

// Register adds a provider. Slugs must be unique.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := p.Slug()
	if slug == "" {
		return errors.New("provider slug cannot be empty")
	}
	if _, ok := r.providers[slug]; ok {
		return errors.Errorf("provider %q is already registered", slug)
	}
	r.providers[slug] = p
	r.registered = append(r.registered, slug)
	return nil
}

// Get returns the provider registered under slug.
func (r *Registry) Get(slug string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[slug]
	return p, ok
}

// Slugs returns the slugs of every registered provider in default order.
func (r *Registry) Slugs() []string {
	providers := r.Ordered(nil)
	slugs := make([]string, 0, len(providers))
	for _, p := range providers {
		slugs = append(slugs, p.Slug())
	}
	return slugs
}

// Ordered returns the providers to query, highest priority first. A non-empty
// selection is used as is, skipping unknown and repeated slugs. An empty selection
// means the default order.
func (r *Registry) Ordered(selected []string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := selected
	if len(order) == 0 {
		order = append(append([]string{}, r.defaultOrder...), r.registered...)
	}

	seen := map[string]struct{}{}
	providers := make([]Provider, 0, len(order))
	for _, slug := range order {
		if _, ok := seen[slug]; ok {
			continue
		}
		p, ok := r.providers[slug]
		if !ok {
			continue
		}
		seen[slug] = struct{}{}
		providers = append(providers, p)
	}
	return providers
}
