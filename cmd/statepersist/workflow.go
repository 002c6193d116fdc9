package main

import (
	"bytes"
	_ "embed"

	"github.com/dmitrymomot/statepersist/pkg/statemachine"
)

//go:embed workflow.yaml
var defaultWorkflow []byte

func loadWorkflow(path string) (*statemachine.Definition, error) {
	if path == "" {
		return statemachine.ParseDefinition(bytes.NewReader(defaultWorkflow))
	}
	return statemachine.LoadDefinition(path)
}

// script lists the events a worker fires, in order. Every workflow event
// appears once; the first worker also tries to cancel right after the start.
func script(def *statemachine.Definition, worker int) []statemachine.Event {
	seen := make(map[string]struct{}, len(def.Transitions))
	var events, cancels []statemachine.Event
	for _, t := range def.Transitions {
		if _, ok := seen[t.Event]; ok {
			continue
		}
		seen[t.Event] = struct{}{}
		if t.Event == "cancel" {
			cancels = append(cancels, statemachine.StringEvent(t.Event))
			continue
		}
		events = append(events, statemachine.StringEvent(t.Event))
	}
	if worker != 0 || len(cancels) == 0 || len(events) == 0 {
		return events
	}
	out := make([]statemachine.Event, 0, len(events)+len(cancels))
	out = append(out, events[0])
	out = append(out, cancels...)
	return append(out, events[1:]...)
}
