// Package statemachine provides a finite-state-machine (FSM) engine whose
// current state lives on the entity it drives and is committed through a
// Persister.
//
// The package revolves around two minimal interfaces – State and Event – that
// give you full freedom to model domain specific states and events while the
// library handles:
//  1. Transition validation and lookup
//  2. Optional Guard evaluation to accept or reject transitions
//  3. Execution of side-effect Actions during transitions
//  4. Optimistic commits with automatic retry on stale state
//
// Ready-made helpers such as StringState and StringEvent let you get started
// quickly, and Definition loads a whole workflow from YAML.
//
// # Architecture
//
// Machine keeps an immutable nested map map[FromState][Event][]Transition for
// O(1) lookups. It never stores the current state itself: each call to Fire
// reads it from the entity through the Persister, picks the first transition
// whose guards pass, runs its actions and asks the Persister to move the
// entity from the state it read to the target state. If another actor moved
// the entity first, the Persister answers with a *StaleStateError and Fire
// starts over from the refreshed state, up to WithRetryAttempts times.
//
// # Usage
//
//	const (
//	    Draft    = statemachine.StringState("draft")
//	    InReview = statemachine.StringState("in_review")
//	    Submit   = statemachine.StringEvent("submit")
//	)
//
//	machine := statemachine.MustNew[*Document](documentPersister,
//	    statemachine.WithTransition(Draft, InReview, Submit),
//	)
//
//	state, err := machine.Fire(ctx, doc, Submit, nil)
//
// # Error Handling
//
// When Fire returns an error you can inspect it using helper functions:
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* ... */ }
//	if statemachine.IsTransitionRejectedError(err)   { /* ... */ }
//	if errors.Is(err, statemachine.ErrTooBusy)       { /* ... */ }
//
// # Concurrency
//
// Machine is safe for concurrent use. Serialization of transitions on a single
// entity is the Persister's job; see package persister for the reference
// implementation.
package statemachine
