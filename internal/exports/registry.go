package exports

import (
	"sort"
	"sync"
)

// Registry is the set of task keys currently in flight. It is the single
// source of truth for deduplication: a key stays reserved from submission
// until its terminal event is reconciled.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewRegistry creates an empty reservation set.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

// Reserve inserts key and returns true, or returns false without side
// effects when the key is already in flight.
func (r *Registry) Reserve(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; ok {
		return false
	}
	r.keys[key] = struct{}{}
	return true
}

// Release removes key and reports whether it was present.
func (r *Registry) Release(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; !ok {
		return false
	}
	delete(r.keys, key)
	return true
}

// Contains reports whether key is currently reserved.
func (r *Registry) Contains(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[key]
	return ok
}

// Len returns the number of in-flight keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Snapshot returns the reserved keys sorted for stable observer display.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.keys))
	for key := range r.keys {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
