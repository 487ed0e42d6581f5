package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnemet/slidegen/internal/config"
)

// Registry is the immutable set of adapters built at startup. It is safe for
// concurrent use because nothing mutates it after NewRegistry returns.
type Registry struct {
	providers map[string]Provider
	names     []string
}

// NormalizeName lower-cases and trims a provider name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewRegistry registers the built-in adapters, applies configured overrides
// and adds configured extra adapters (sorted by name, after the built-ins).
func NewRegistry(settings map[string]config.ProviderSettings) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}

	overrides := make(map[string]config.ProviderSettings, len(settings))
	for name, s := range settings {
		overrides[NormalizeName(name)] = s
	}

	for _, p := range builtins() {
		if s, ok := overrides[p.Name()]; ok {
			p = withSettings(p, s)
			delete(overrides, p.Name())
		}
		r.add(p)
	}

	extra := make([]string, 0, len(overrides))
	for name := range overrides {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		p, err := fromDriver(name, overrides[name])
		if err != nil {
			return nil, fmt.Errorf("invalid provider configuration: %w", err)
		}
		r.add(p)
	}

	return r, nil
}

func (r *Registry) add(p Provider) {
	r.providers[p.Name()] = p
	r.names = append(r.names, p.Name())
}

// Resolve returns the adapter registered under name or an
// *UnsupportedProviderError listing the supported names.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[NormalizeName(name)]; ok {
		return p, nil
	}
	return nil, &UnsupportedProviderError{Name: name, Supported: r.Names()}
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
