package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be nil")
	ErrInvalidEntity     = errors.New("invalid entity: entity cannot be nil")
	ErrNilPersister      = errors.New("persister cannot be nil")
	ErrInvalidDefinition = errors.New("invalid state machine definition")

	// ErrStaleState is matched by every *StaleStateError via errors.Is.
	ErrStaleState = errors.New("stale state")

	// ErrTooBusy is returned by Fire when every retry lost the race to a concurrent transition.
	ErrTooBusy = errors.New("too busy: retry attempts exhausted")
)

// ErrNoTransitionAvailable indicates no valid transition exists for the given state/event combination.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrNoTransitionAvailable(stateName, eventName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName: stateName,
		EventName: eventName,
	}
}

// ErrTransitionRejected indicates all possible transitions were blocked by guard functions.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.StateName, e.EventName)
}

func NewErrTransitionRejected(stateName, eventName string) *ErrTransitionRejected {
	return &ErrTransitionRejected{
		StateName: stateName,
		EventName: eventName,
	}
}

// StaleStateError reports that the entity left the expected state before the
// transition could be committed. It is an expected, retryable condition.
type StaleStateError struct {
	Expected string // state the transition was computed against
	Next     string // state the caller tried to move to
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("unable to update state, entity.state=%s, next.state=%s", e.Expected, e.Next)
}

func (e *StaleStateError) Is(target error) bool {
	return target == ErrStaleState
}

func NewStaleStateError(expected, next string) *StaleStateError {
	return &StaleStateError{
		Expected: expected,
		Next:     next,
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}

func IsStaleStateError(err error) bool {
	var e *StaleStateError
	return errors.As(err, &e)
}
