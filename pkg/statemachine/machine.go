package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/statepersist/pkg/logger"
)

// Machine drives entities of type T through a fixed transition table.
// The current state lives on the entity itself and every change is committed
// through a Persister, so one Machine serves any number of entities and
// processes. Transitions are indexed as [fromState][event][]Transition.
type Machine[T any] struct {
	persister     Persister[T]
	transitions   map[string]map[string][]Transition
	states        []State
	retryAttempts int
	retryInterval time.Duration
	logger        *slog.Logger
}

// New creates a state machine committing transitions through persister.
func New[T any](persister Persister[T], opts ...Option) (*Machine[T], error) {
	if persister == nil {
		return nil, ErrNilPersister
	}

	o := defaultMachineOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	m := &Machine[T]{
		persister:     persister,
		transitions:   make(map[string]map[string][]Transition),
		retryAttempts: o.retryAttempts,
		retryInterval: o.retryInterval,
		logger:        o.logger.With(logger.Component("statemachine")),
	}

	seen := make(map[string]struct{})
	for _, t := range o.transitions {
		fromStateName := t.From.Name()
		if _, ok := m.transitions[fromStateName]; !ok {
			m.transitions[fromStateName] = make(map[string][]Transition)
		}
		// Multiple transitions allowed for same from/event to support guard-based branching
		m.transitions[fromStateName][t.Event.Name()] = append(m.transitions[fromStateName][t.Event.Name()], t)

		for _, s := range []State{t.From, t.To} {
			if _, ok := seen[s.Name()]; !ok {
				seen[s.Name()] = struct{}{}
				m.states = append(m.states, s)
			}
		}
	}

	return m, nil
}

// MustNew creates a new state machine with the given persister and options.
// Panics if any option fails to apply, following the fail-fast pattern.
func MustNew[T any](persister Persister[T], opts ...Option) *Machine[T] {
	m, err := New(persister, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// Current returns the state the entity is in.
func (m *Machine[T]) Current(entity T) (State, error) {
	return m.persister.Current(entity)
}

// States returns every state referenced by the transition table, in declaration order.
func (m *Machine[T]) States() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Fire applies event to entity and returns the state it ended up in.
//
// Actions run before the new state is committed. When the commit loses a race
// the entity is re-read and the whole step, actions included, is attempted
// again, so actions must tolerate being executed more than once.
func (m *Machine[T]) Fire(ctx context.Context, entity T, event Event, data any) (State, error) {
	if event == nil {
		return nil, ErrInvalidEvent
	}

	var lastErr error
	for attempt := range m.retryAttempts {
		if attempt > 0 && m.retryInterval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.retryInterval):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := m.persister.Current(entity)
		if err != nil {
			return nil, err
		}

		transition, err := m.selectTransition(ctx, current, event, data)
		if err != nil {
			return nil, err
		}

		// Any action failure aborts the transition before anything is committed
		for _, action := range transition.Actions {
			if action != nil {
				if err := action(ctx, current, transition.To, event, data); err != nil {
					return nil, fmt.Errorf("action failed: %w", err)
				}
			}
		}

		err = m.persister.SetCurrent(ctx, entity, current, transition.To)
		if err == nil {
			return transition.To, nil
		}
		if !IsStaleStateError(err) {
			return nil, err
		}

		lastErr = err
		m.logger.DebugContext(ctx, "stale state, retrying transition",
			logger.FromState(current.Name()),
			logger.ToState(transition.To.Name()),
			logger.Event(event.Name()),
			logger.Attempt(attempt+1))
	}

	m.logger.WarnContext(ctx, "transition retry attempts exhausted",
		logger.Event(event.Name()),
		logger.Attempt(m.retryAttempts))
	return nil, errors.Join(ErrTooBusy, lastErr)
}

// CanFire reports whether event would be accepted for entity in its current state.
func (m *Machine[T]) CanFire(ctx context.Context, entity T, event Event, data any) bool {
	if event == nil {
		return false
	}
	current, err := m.persister.Current(entity)
	if err != nil {
		return false
	}
	_, err = m.selectTransition(ctx, current, event, data)
	return err == nil
}

// selectTransition picks the first transition whose guards all pass, which
// lets callers express priority by declaration order.
func (m *Machine[T]) selectTransition(ctx context.Context, current State, event Event, data any) (*Transition, error) {
	currentStateName := current.Name()
	eventName := event.Name()

	transitions := m.transitions[currentStateName][eventName]
	if len(transitions) == 0 {
		return nil, NewErrNoTransitionAvailable(currentStateName, eventName)
	}

	for i, t := range transitions {
		allGuardsPassed := true
		for _, guard := range t.Guards {
			if guard != nil && !guard(ctx, current, event, data) {
				allGuardsPassed = false
				break
			}
		}
		if allGuardsPassed {
			return &transitions[i], nil
		}
	}

	return nil, NewErrTransitionRejected(currentStateName, eventName)
}
