package persister

import "context"

// Update is a conditional state change: set the state of row ID to Next, but
// only if its recorded state equals Expected. When MatchAbsent is set, rows
// with no recorded state match as well, since they are implicitly in the
// start state.
type Update struct {
	ID          any
	Expected    string
	MatchAbsent bool
	Next        string
}

// Store is the durable side of the persister.
//
// UpdateState must apply Update as a single atomic conditional write and
// report how many rows it changed. LoadState returns the recorded state name
// for id, "" when the row has no state, or ErrNotFound when no row exists.
type Store interface {
	UpdateState(ctx context.Context, u Update) (affected int64, err error)
	LoadState(ctx context.Context, id any) (string, error)
}
