package persister

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory for testing and local development.
// A row may exist without a recorded state, which models a freshly inserted
// entity whose state column is still NULL.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[any]*string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[any]*string)}
}

// Insert creates or replaces the row for id. An empty state leaves the state unset.
func (s *MemoryStore) Insert(id any, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == "" {
		s.rows[id] = nil
		return
	}
	s.rows[id] = &state
}

// Delete removes the row for id.
func (s *MemoryStore) Delete(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
}

// UpdateState implements Store. The comparison and the write happen under one
// lock, which gives the same guarantee as a conditional UPDATE statement.
func (s *MemoryStore) UpdateState(ctx context.Context, u Update) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rows[u.ID]
	if !ok {
		return 0, nil
	}

	matches := (current != nil && *current == u.Expected) || (current == nil && u.MatchAbsent)
	if !matches {
		return 0, nil
	}

	next := u.Next
	s.rows[u.ID] = &next
	return 1, nil
}

// LoadState implements Store.
func (s *MemoryStore) LoadState(ctx context.Context, id any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.rows[id]
	if !ok {
		return "", ErrNotFound
	}
	if current == nil {
		return "", nil
	}
	return *current, nil
}
