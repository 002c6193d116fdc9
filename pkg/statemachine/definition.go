package statemachine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative workflow: the full set of states, the start
// state and the transition table. It is usually loaded from YAML:
//
//	start: new
//	states: [new, processing, shipped]
//	transitions:
//	  - {from: new, event: process, to: processing}
//	  - {from: processing, event: ship, to: shipped}
type Definition struct {
	StartState  string                 `yaml:"start"`
	StateNames  []string               `yaml:"states"`
	Transitions []DefinitionTransition `yaml:"transitions"`
}

// DefinitionTransition is a single edge of a Definition.
type DefinitionTransition struct {
	From  string `yaml:"from"`
	Event string `yaml:"event"`
	To    string `yaml:"to"`
}

// ParseDefinition decodes and validates a YAML workflow definition.
func ParseDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Join(ErrInvalidDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads a YAML workflow definition from path.
func LoadDefinition(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDefinition(f)
}

// Validate checks that state names are unique and that the start state and
// every transition endpoint are declared.
func (d *Definition) Validate() error {
	if len(d.StateNames) == 0 {
		return fmt.Errorf("%w: no states declared", ErrInvalidDefinition)
	}

	known := make(map[string]struct{}, len(d.StateNames))
	for _, name := range d.StateNames {
		if name == "" {
			return fmt.Errorf("%w: empty state name", ErrInvalidDefinition)
		}
		if _, dup := known[name]; dup {
			return fmt.Errorf("%w: duplicate state %q", ErrInvalidDefinition, name)
		}
		known[name] = struct{}{}
	}

	if _, ok := known[d.StartState]; !ok {
		return fmt.Errorf("%w: start state %q is not declared", ErrInvalidDefinition, d.StartState)
	}

	for i, t := range d.Transitions {
		if t.Event == "" {
			return fmt.Errorf("%w: transition[%d] has no event", ErrInvalidDefinition, i)
		}
		for _, name := range []string{t.From, t.To} {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("%w: transition[%d] references unknown state %q", ErrInvalidDefinition, i, name)
			}
		}
	}

	return nil
}

// States returns the declared states in declaration order.
func (d *Definition) States() []State {
	states := make([]State, 0, len(d.StateNames))
	for _, name := range d.StateNames {
		states = append(states, StringState(name))
	}
	return states
}

// Start returns the start state.
func (d *Definition) Start() State {
	return StringState(d.StartState)
}

// Option returns the transition table as a machine option. Extra transition
// options, such as guards, are applied to every transition triggered by the
// matching event name.
func (d *Definition) Option(perEvent map[string][]TransitionOption) Option {
	return func(o *machineOptions) error {
		for i, t := range d.Transitions {
			cfg := &transitionConfig{}
			for _, opt := range perEvent[t.Event] {
				opt(cfg)
			}
			if err := o.addTransition(StringState(t.From), StringState(t.To), StringEvent(t.Event), cfg.guards, cfg.actions); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w", i, t.From, t.To, t.Event, err)
			}
		}
		return nil
	}
}
