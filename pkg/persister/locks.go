package persister

import "sync"

// lockRegistry hands out one mutex per entity instance. Entries are created
// on first use and dropped as soon as the last holder releases them, so the
// registry only ever holds entities that are mid-transition.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[any]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[any]*entityLock)}
}

// acquire blocks until the caller owns the lock for key and returns the
// release function.
func (r *lockRegistry) acquire(key any) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &entityLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

func (r *lockRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
