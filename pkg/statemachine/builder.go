package statemachine

// Builder provides a fluent API for assembling a transition table.
type Builder struct {
	transitions  []TransitionDef
	currentFrom  State
	currentEvent Event
	currentTo    State
	guards       []Guard
	actions      []Action
}

// NewBuilder creates a new transition table builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// From sets the starting state for a transition.
func (b *Builder) From(state State) *Builder {
	b.reset()
	b.currentFrom = state
	return b
}

// When sets the event that triggers a transition.
func (b *Builder) When(event Event) *Builder {
	b.currentEvent = event
	return b
}

// To sets the target state for a transition.
func (b *Builder) To(state State) *Builder {
	b.currentTo = state
	return b
}

// WithGuard adds a guard function to the current transition.
func (b *Builder) WithGuard(guard Guard) *Builder {
	b.guards = append(b.guards, guard)
	return b
}

// WithAction adds an action function to the current transition.
func (b *Builder) WithAction(action Action) *Builder {
	b.actions = append(b.actions, action)
	return b
}

// Add finalizes the current transition and appends it to the table.
func (b *Builder) Add() (*Builder, error) {
	if b.currentFrom == nil || b.currentTo == nil || b.currentEvent == nil {
		return b, ErrInvalidTransition
	}
	b.transitions = append(b.transitions, TransitionDef{
		From:    b.currentFrom,
		To:      b.currentTo,
		Event:   b.currentEvent,
		Guards:  b.guards,
		Actions: b.actions,
	})
	b.reset()
	return b, nil
}

// WithTransition is a shorthand method to add a transition in one call.
func (b *Builder) WithTransition(from, to State, event Event, guard Guard, action Action) (*Builder, error) {
	if from == nil || to == nil || event == nil {
		return b, ErrInvalidTransition
	}
	def := TransitionDef{From: from, To: to, Event: event}
	if guard != nil {
		def.Guards = append(def.Guards, guard)
	}
	if action != nil {
		def.Actions = append(def.Actions, action)
	}
	b.transitions = append(b.transitions, def)
	return b, nil
}

// Build returns the collected transitions as a single option for New.
func (b *Builder) Build() Option {
	defs := make([]TransitionDef, len(b.transitions))
	copy(defs, b.transitions)
	return WithTransitions(defs)
}

// reset clears the current transition configuration.
func (b *Builder) reset() {
	b.currentFrom = nil
	b.currentEvent = nil
	b.currentTo = nil
	b.guards = nil
	b.actions = nil
}
