package statemachine

import (
	"context"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action executes side effects during state transitions. Returning an error prevents the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass for transition to proceed
	Actions []Action // Executed in order before the state is committed
}

// Persister reads and commits the current state of an entity.
//
// SetCurrent must apply the change only if the entity is still in current,
// and return a *StaleStateError otherwise so the machine can retry with the
// refreshed state.
type Persister[T any] interface {
	Current(entity T) (State, error)
	SetCurrent(ctx context.Context, entity T, current, next State) error
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation for basic use cases.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}

// SameState reports whether two states share a name. Nil states never match.
func SameState(a, b State) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Name() == b.Name()
}
