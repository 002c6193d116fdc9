// Package persister commits finite-state-machine transitions for entities
// whose current state is stored on the entity itself and, once saved, in a
// durable store.
//
// A Persister is the linearization point for one edge of a workflow: the
// state machine computes "from X, on E, go to Y" and SetCurrent applies it
// only if the entity is still in X. When another actor got there first, the
// entity is refreshed and a *statemachine.StaleStateError is returned so the
// machine can recompute and retry.
//
// # Architecture
//
// Two execution paths are chosen per call:
//
//   - Persisted entities (an identifier is set and the active UnitOfWork
//     tracks the instance) are changed with one conditional Store update,
//     scoped by identifier and expected state. The start state also matches
//     rows with no recorded state. Zero affected rows means staleness: the
//     authoritative state is loaded back into the entity before the error is
//     returned.
//   - Transient entities never touch the store. The read-check-write runs
//     under a mutex keyed by the entity instance; the lock registry only holds
//     entries while a transition is in flight.
//
// Accessor hides field access. NewStructAccessor resolves tagged struct
// fields once at construction; AccessorFuncs wraps hand-written getters and
// setters.
//
// Store adapters live in sub-packages: pgstore (PostgreSQL via pgx),
// redisstore (Redis hashes and a Lua compare-and-set) and mongostore
// (MongoDB documents). MemoryStore is provided for tests and local
// development.
//
// # Usage
//
//	type Order struct {
//	    ID    int64  `fsm:"id"`
//	    State string `fsm:"state"`
//	}
//
//	states := []statemachine.State{New, Processing, Shipped}
//	p, err := persister.New(states, New, persister.MustStructAccessor[*Order](), pgstore.New(pool, cfg))
//	if err != nil {
//	    // configuration error, fail fast
//	}
//
//	ctx = persister.WithSession(ctx, session) // entities loaded in this unit of work
//	err = p.SetCurrent(ctx, order, New, Processing)
//
// # Error Handling
//
//   - ErrConfiguration: returned by New and NewStructAccessor, fatal.
//   - *statemachine.StaleStateError: expected, retry with fresh state.
//   - ErrAccessor: the entity's fields could not be read or written, fatal.
//   - Anything else comes from the Store and is returned unchanged.
package persister
