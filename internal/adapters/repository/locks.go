package repository

import "sync"

// LockRegistry hands out one mutex per key so callers can serialize
// work on a single participant or category partition while unrelated
// keys proceed in parallel. Entries are reference counted and removed
// once the last holder releases, so the map stays bounded by the
// number of keys currently in flight.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	refs int
	mu   sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the key's mutex is held and returns the release
// function. Release must be called exactly once.
func (r *LockRegistry) Lock(key string) func() {
	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		e = &lockEntry{}
		r.locks[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// Size returns the number of keys currently tracked.
func (r *LockRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
