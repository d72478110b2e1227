package transform

import (
	"sort"
	"sync"
)

// Registry maps names to operation sets. Sets that reference a procedure by
// name hold the registry itself, not a snapshot, so replacing an entry is
// visible to every holder immediately. Registration is expected to happen
// during setup; the lock exists so late replacements do not race readers.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewRegistry creates an empty procedure registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*Set)}
}

// Register adds or replaces the named operation set.
func (r *Registry) Register(name string, s *Set) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[name] = s
}

// Unregister removes the named operation set, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sets[name]
	delete(r.sets, name)
	return ok
}

// Lookup resolves a registered operation set by name.
func (r *Registry) Lookup(name string) (*Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[name]
	return s, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
