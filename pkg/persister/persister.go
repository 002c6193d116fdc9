package persister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/dmitrymomot/statepersist/pkg/logger"
	"github.com/dmitrymomot/statepersist/pkg/statemachine"
)

// Persister reads and commits the state of entities of type T.
// It is immutable after New and safe for concurrent use.
type Persister[T any] struct {
	accessor   Accessor[T]
	store      Store
	start      statemachine.State
	states     map[string]statemachine.State
	unitOfWork UnitOfWork
	locks      *lockRegistry
	logger     *slog.Logger
	metrics    *metrics
}

var _ statemachine.Persister[*struct{}] = (*Persister[*struct{}])(nil)

// New builds a persister for the given state set. start must be one of
// states, names must be unique and T must be comparable, since transient
// entities are locked by identity. Every failure is an ErrConfiguration.
func New[T any](states []statemachine.State, start statemachine.State, accessor Accessor[T], store Store, opts ...Option) (*Persister[T], error) {
	if accessor == nil {
		return nil, configError(ErrNilAccessor)
	}
	if v, ok := accessor.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, configError(err)
		}
	}
	if store == nil {
		return nil, configError(ErrNilStore)
	}
	if start == nil {
		return nil, configError(ErrNilStartState)
	}
	if typ := reflect.TypeFor[T](); !typ.Comparable() {
		return nil, configError(fmt.Errorf("%w: %s", ErrEntityNotComparable, typ))
	}

	index := make(map[string]statemachine.State, len(states))
	for _, s := range states {
		if s == nil {
			return nil, configError(ErrNilState)
		}
		if _, dup := index[s.Name()]; dup {
			return nil, configError(fmt.Errorf("%w: %q", ErrDuplicateState, s.Name()))
		}
		index[s.Name()] = s
	}
	if _, ok := index[start.Name()]; !ok {
		return nil, configError(fmt.Errorf("%w: %q", ErrUnknownStartState, start.Name()))
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, configError(err)
	}

	return &Persister[T]{
		accessor:   accessor,
		store:      store,
		start:      start,
		states:     index,
		unitOfWork: o.unitOfWork,
		locks:      newLockRegistry(),
		logger:     o.logger.With(logger.Component("persister")),
		metrics:    m,
	}, nil
}

// Start returns the configured start state.
func (p *Persister[T]) Start() statemachine.State {
	return p.start
}

// Current returns the state entity is in. An entity without a recorded state,
// or with a name this persister does not know, is in the start state.
func (p *Persister[T]) Current(entity T) (statemachine.State, error) {
	name, ok, err := p.accessor.State(entity)
	if err != nil {
		return nil, accessorError(err)
	}
	if !ok {
		return p.start, nil
	}
	if s, found := p.states[name]; found {
		return s, nil
	}
	return p.start, nil
}

// SetCurrent moves entity from current to next, provided it is still in
// current. Otherwise it returns a *statemachine.StaleStateError and, for
// persisted entities, refreshes the entity's state from the store first.
//
// Entities that have an identifier and are tracked by the active unit of work
// are changed with a single conditional store update; the in-memory copy is
// then written under the per-instance lock. All others only exist in memory
// and are changed under that lock without touching the store. Store failures
// are returned unchanged.
func (p *Persister[T]) SetCurrent(ctx context.Context, entity T, current, next statemachine.State) error {
	if current == nil || next == nil {
		return statemachine.ErrInvalidTransition
	}

	id, hasID, err := p.accessor.ID(entity)
	if err != nil {
		return accessorError(err)
	}

	if hasID && p.tracked(ctx, entity) {
		return p.setPersisted(ctx, entity, id, current, next)
	}
	return p.setTransient(ctx, entity, current, next)
}

func (p *Persister[T]) setPersisted(ctx context.Context, entity T, id any, current, next statemachine.State) error {
	affected, err := p.store.UpdateState(ctx, Update{
		ID:          id,
		Expected:    current.Name(),
		MatchAbsent: statemachine.SameState(current, p.start),
		Next:        next.Name(),
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		// Lost the race: pull the authoritative state into the entity so the
		// caller can recompute the transition from it.
		state, err := p.store.LoadState(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			p.logger.WarnContext(ctx, "entity row not found while refreshing stale state, assuming start state",
				logger.EntityID(id),
				logger.FromState(current.Name()))
			state = ""
		case err != nil:
			return err
		}
		if state == "" {
			state = p.start.Name()
		}
		if err := p.writeState(entity, state); err != nil {
			return err
		}

		p.metrics.conflict(ctx, pathStore, current.Name())
		p.logger.DebugContext(ctx, "stale state detected",
			logger.EntityID(id),
			logger.FromState(current.Name()),
			logger.ToState(next.Name()),
			slog.String("actual_state", state))
		return statemachine.NewStaleStateError(current.Name(), next.Name())
	}

	if err := p.writeState(entity, next.Name()); err != nil {
		return err
	}
	p.metrics.committed(ctx, pathStore, next.Name())
	return nil
}

func (p *Persister[T]) setTransient(ctx context.Context, entity T, current, next statemachine.State) error {
	release, err := p.lock(entity)
	if err != nil {
		return err
	}
	defer release()

	state, ok, err := p.accessor.State(entity)
	if err != nil {
		return accessorError(err)
	}
	if !ok {
		state = p.start.Name()
	}

	if state != current.Name() {
		p.metrics.conflict(ctx, pathMemory, current.Name())
		return statemachine.NewStaleStateError(current.Name(), next.Name())
	}

	if err := p.accessor.SetState(entity, next.Name()); err != nil {
		return accessorError(err)
	}
	p.metrics.committed(ctx, pathMemory, next.Name())
	return nil
}

// writeState stores name in the in-memory entity under its identity lock, so
// goroutines sharing one persisted instance never write it concurrently.
// The store update itself runs without the lock.
func (p *Persister[T]) writeState(entity T, name string) error {
	release, err := p.lock(entity)
	if err != nil {
		return err
	}
	defer release()

	if err := p.accessor.SetState(entity, name); err != nil {
		return accessorError(err)
	}
	return nil
}

// lock acquires the identity lock of entity. A dynamic value that cannot be a
// map key, such as a slice behind an interface type parameter, is rejected.
func (p *Persister[T]) lock(entity T) (func(), error) {
	key := any(entity)
	if typ := reflect.TypeOf(key); typ != nil && !typ.Comparable() {
		return nil, accessorError(fmt.Errorf("%w: %s", ErrEntityNotComparable, typ))
	}
	return p.locks.acquire(key), nil
}

// tracked resolves the active unit of work: a Session in ctx wins over the
// WithUnitOfWork option; with neither, an identifier alone means persisted.
func (p *Persister[T]) tracked(ctx context.Context, entity T) bool {
	if s, ok := SessionFromContext(ctx); ok {
		return s.Contains(entity)
	}
	if p.unitOfWork != nil {
		return p.unitOfWork.Contains(entity)
	}
	return true
}
