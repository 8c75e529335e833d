package refs

import (
	"fmt"
	"sync"
)

// Registry maps backend names ("files", "kv", ...) to their compiled-in
// Backend implementations. Entries are added with Register; the
// backends do not register themselves, and the CLI opens its backend
// directly by name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a named backend. Returns an error if name is already
// registered or backend is nil.
func (r *Registry) Register(name string, backend Backend) error {
	if backend == nil {
		return fmt.Errorf("refs: cannot register nil backend %q", name)
	}
	if name == "" {
		return fmt.Errorf("refs: cannot register backend with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("refs: backend %q already registered", name)
	}
	r.backends[name] = backend
	return nil
}

// Get looks up a backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns every registered backend name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// SubmoduleBackendProvider resolves the backend name a submodule has
// selected for itself, read from the submodule's own configuration.
type SubmoduleBackendProvider func(submodule string) (string, error)

// ValidateSubmodule enforces that a submodule uses the same backend as
// the superproject (§4.8): it is fatal for them to disagree, caught on
// first access.
func (r *Registry) ValidateSubmodule(superprojectBackend, submodule string, provider SubmoduleBackendProvider) error {
	subBackend, err := provider(submodule)
	if err != nil {
		return fmt.Errorf("refs: reading submodule %q backend: %w", submodule, err)
	}
	if subBackend != superprojectBackend {
		return fmt.Errorf("refs: submodule %q uses backend %q, superproject uses %q", submodule, subBackend, superprojectBackend)
	}
	return nil
}
