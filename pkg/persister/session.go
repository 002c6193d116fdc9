package persister

import (
	"context"
	"reflect"
	"sync"
)

// UnitOfWork reports whether an entity instance is tracked as persisted.
// Only tracked entities are updated through the Store; everything else is
// treated as living in process memory.
type UnitOfWork interface {
	Contains(entity any) bool
}

// UnitOfWorkFunc adapts a function to UnitOfWork.
type UnitOfWorkFunc func(entity any) bool

func (f UnitOfWorkFunc) Contains(entity any) bool {
	return f(entity)
}

// Session is an identity-keyed UnitOfWork: it tracks entity instances (by
// pointer, not by value) that were loaded from or saved to the store.
type Session struct {
	mu      sync.RWMutex
	tracked map[any]struct{}
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{tracked: make(map[any]struct{})}
}

// Track marks entities as persisted. Non-comparable values are ignored.
func (s *Session) Track(entities ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		if isComparable(e) {
			s.tracked[e] = struct{}{}
		}
	}
}

// Forget stops tracking entity, e.g. after it was deleted or detached.
func (s *Session) Forget(entity any) {
	if !isComparable(entity) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, entity)
}

func (s *Session) Contains(entity any) bool {
	if !isComparable(entity) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tracked[entity]
	return ok
}

// Len returns the number of tracked entities.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracked)
}

type sessionKey struct{}

// WithSession attaches the active unit of work to ctx. It takes precedence
// over the persister's WithUnitOfWork option.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached with WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

func isComparable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}
