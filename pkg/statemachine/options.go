package statemachine

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures a state machine during construction.
type Option func(*machineOptions) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption func(*transitionConfig)

// TransitionDef defines a transition between states.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

type transitionConfig struct {
	guards  []Guard
	actions []Action
}

type machineOptions struct {
	transitions   []Transition
	retryAttempts int
	retryInterval time.Duration
	logger        *slog.Logger
}

// Retry defaults applied when no option overrides them.
const (
	DefaultRetryAttempts = 20
	DefaultRetryInterval = time.Duration(0)
)

func defaultMachineOptions() *machineOptions {
	return &machineOptions{
		retryAttempts: DefaultRetryAttempts,
		retryInterval: DefaultRetryInterval,
		logger:        slog.Default(),
	}
}

func (o *machineOptions) addTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}
	o.transitions = append(o.transitions, Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// WithTransition adds a single transition to the state machine.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(o *machineOptions) error {
		cfg := &transitionConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		return o.addTransition(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTransitions adds multiple transitions to the state machine at once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(o *machineOptions) error {
		for i, t := range transitions {
			if err := o.addTransition(t.From, t.To, t.Event, t.Guards, t.Actions); err != nil {
				// Handle nil states/events safely in error message
				fromName := "<nil>"
				toName := "<nil>"
				eventName := "<nil>"
				if t.From != nil {
					fromName = t.From.Name()
				}
				if t.To != nil {
					toName = t.To.Name()
				}
				if t.Event != nil {
					eventName = t.Event.Name()
				}
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, fromName, toName, eventName, err)
			}
		}
		return nil
	}
}

// WithRetryAttempts sets how many times Fire re-reads the entity and retries
// after a stale state conflict. Values below 1 are ignored.
func WithRetryAttempts(n int) Option {
	return func(o *machineOptions) error {
		if n > 0 {
			o.retryAttempts = n
		}
		return nil
	}
}

// WithRetryInterval sets the pause between retries. Negative values are ignored.
func WithRetryInterval(d time.Duration) Option {
	return func(o *machineOptions) error {
		if d >= 0 {
			o.retryInterval = d
		}
		return nil
	}
}

// WithLogger sets the logger used to report conflicts and retries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *machineOptions) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithGuard adds a single guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithGuards adds multiple guards to a transition.
func WithGuards(guards ...Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		for _, guard := range guards {
			if guard != nil {
				cfg.guards = append(cfg.guards, guard)
			}
		}
	}
}

// WithAction adds a single action to a transition.
func WithAction(action Action) TransitionOption {
	return func(cfg *transitionConfig) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}

// WithActions adds multiple actions to a transition.
func WithActions(actions ...Action) TransitionOption {
	return func(cfg *transitionConfig) {
		for _, action := range actions {
			if action != nil {
				cfg.actions = append(cfg.actions, action)
			}
		}
	}
}
