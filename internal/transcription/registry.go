package transcription

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a provider from options.
type Factory func(Options) (Provider, error)

// Registry maps provider names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in provider.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderGroq, func(o Options) (Provider, error) { return NewWhisper(ProviderGroq, o) })
	r.Register(ProviderOpenAI, func(o Options) (Provider, error) { return NewWhisper(ProviderOpenAI, o) })
	r.Register(ProviderGCP, func(o Options) (Provider, error) { return NewGoogleSpeech(o) })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// New builds the named provider.
func (r *Registry) New(name string, opts Options) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transcription provider %q not registered (have %s)", name, strings.Join(r.Names(), ", "))
	}
	return f(opts)
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
