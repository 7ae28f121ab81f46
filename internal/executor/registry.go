package executor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry resolves environment names, case-insensitively, to backends.
// Registries hold factories only; every New call returns a fresh Executor.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]*Backend)}
}

var defaultRegistry = NewRegistry()

// Default is the registry backend packages add themselves to from init.
func Default() *Registry {
	return defaultRegistry
}

// Register adds b to the default registry.
func Register(b Backend) {
	defaultRegistry.Register(b)
}

func (r *Registry) Register(b Backend) {
	if b.New == nil {
		panic(fmt.Sprintf("environment %s has no factory", b.Name))
	}
	names := append([]string{b.Name}, b.Aliases...)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		key := normalize(n)
		if key == "" {
			panic("environment name is empty")
		}
		if _, exists := r.backends[key]; exists {
			panic(fmt.Sprintf("environment %s already registered", n))
		}
	}
	bp := &b
	for _, n := range names {
		r.backends[normalize(n)] = bp
	}
}

// Lookup returns the backend registered under env or one of its aliases.
func (r *Registry) Lookup(env string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[normalize(env)]
	if !ok {
		return Backend{}, false
	}
	return *b, true
}

// New creates a fresh Executor for env.
func (r *Registry) New(env string, opts Options) (Executor, error) {
	b, ok := r.Lookup(env)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEnvironment, env)
	}
	ex, err := b.New(opts)
	if err != nil {
		return nil, fmt.Errorf("start %s environment: %w", b.Name, err)
	}
	return ex, nil
}

// SameEnvironment reports whether a and b resolve to the same backend.
func (r *Registry) SameEnvironment(a, b string) bool {
	ba, okA := r.Lookup(a)
	bb, okB := r.Lookup(b)
	if !okA || !okB {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ba.Name == bb.Name
}

// List returns each backend once, sorted by name.
func (r *Registry) List() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []Backend
	for _, b := range r.backends {
		if _, ok := seen[b.Name]; ok {
			continue
		}
		seen[b.Name] = struct{}{}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
