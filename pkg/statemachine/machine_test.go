package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/statemachine"
)

const (
	Draft     = statemachine.StringState("draft")
	InReview  = statemachine.StringState("in_review")
	Approved  = statemachine.StringState("approved")
	Published = statemachine.StringState("published")
	Rejected  = statemachine.StringState("rejected")
)

const (
	Submit  = statemachine.StringEvent("submit")
	Approve = statemachine.StringEvent("approve")
	Reject  = statemachine.StringEvent("reject")
	Publish = statemachine.StringEvent("publish")
)

var documentStates = []statemachine.State{Draft, InReview, Approved, Published, Rejected}

type Document struct {
	ID    int64  `fsm:"id"`
	State string `fsm:"state"`
}

func newDocumentPersister(t testing.TB, store persister.Store) *persister.Persister[*Document] {
	t.Helper()
	p, err := persister.New(documentStates, Draft, persister.MustStructAccessor[*Document](), store)
	require.NoError(t, err)
	return p
}

// stalePersister reports a lost race on every commit.
type stalePersister struct {
	calls atomic.Int64
}

func (p *stalePersister) Current(*Document) (statemachine.State, error) {
	return Draft, nil
}

func (p *stalePersister) SetCurrent(_ context.Context, _ *Document, current, next statemachine.State) error {
	p.calls.Add(1)
	return statemachine.NewStaleStateError(current.Name(), next.Name())
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	t.Run("transient entity", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(newDocumentPersister(t, persister.NewMemoryStore()),
			statemachine.WithTransition(Draft, InReview, Submit),
			statemachine.WithTransition(InReview, Approved, Approve),
		)
		ctx := t.Context()
		doc := &Document{}

		current, err := sm.Current(doc)
		require.NoError(t, err)
		assert.Equal(t, Draft, current)

		assert.True(t, sm.CanFire(ctx, doc, Submit, nil))
		assert.False(t, sm.CanFire(ctx, doc, Approve, nil))

		state, err := sm.Fire(ctx, doc, Submit, nil)
		require.NoError(t, err)
		assert.Equal(t, InReview, state)
		assert.Equal(t, "in_review", doc.State)

		state, err = sm.Fire(ctx, doc, Approve, nil)
		require.NoError(t, err)
		assert.Equal(t, Approved, state)
	})

	t.Run("persisted entity", func(t *testing.T) {
		t.Parallel()
		store := persister.NewMemoryStore()
		store.Insert(int64(1), "")
		sm := statemachine.MustNew(newDocumentPersister(t, store),
			statemachine.WithTransition(Draft, InReview, Submit),
		)
		ctx := t.Context()

		doc := &Document{ID: 1}
		state, err := sm.Fire(ctx, doc, Submit, nil)
		require.NoError(t, err)
		assert.Equal(t, InReview, state)

		stored, err := store.LoadState(ctx, int64(1))
		require.NoError(t, err)
		assert.Equal(t, "in_review", stored)

		// A stale copy is refreshed from the store, and submit no longer applies.
		stale := &Document{ID: 1}
		_, err = sm.Fire(ctx, stale, Submit, nil)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Equal(t, "in_review", stale.State)
	})

	t.Run("states", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(newDocumentPersister(t, persister.NewMemoryStore()),
			statemachine.WithTransition(Draft, InReview, Submit),
			statemachine.WithTransition(InReview, Approved, Approve),
			statemachine.WithTransition(InReview, Rejected, Reject),
		)
		assert.Equal(t, []statemachine.State{Draft, InReview, Approved, Rejected}, sm.States())
	})
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()

	isApproved := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		approved, _ := data.(bool)
		return approved
	}
	isRejected := func(ctx context.Context, from statemachine.State, event statemachine.Event, data any) bool {
		return !isApproved(ctx, from, event, data)
	}

	sm := statemachine.MustNew(newDocumentPersister(t, persister.NewMemoryStore()),
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithTransition(InReview, Approved, Approve, statemachine.WithGuard(isApproved)),
		statemachine.WithTransition(InReview, Rejected, Approve, statemachine.WithGuard(isRejected)),
		statemachine.WithTransition(Approved, Published, Publish,
			statemachine.WithGuards(isApproved, nil, isApproved)),
	)
	ctx := t.Context()

	approved := &Document{State: "in_review"}
	state, err := sm.Fire(ctx, approved, Approve, true)
	require.NoError(t, err)
	assert.Equal(t, Approved, state)

	rejected := &Document{State: "in_review"}
	state, err = sm.Fire(ctx, rejected, Approve, false)
	require.NoError(t, err)
	assert.Equal(t, Rejected, state)

	_, err = sm.Fire(ctx, approved, Publish, false)
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.False(t, sm.CanFire(ctx, approved, Publish, false))
	assert.True(t, sm.CanFire(ctx, approved, Publish, true))
	assert.Equal(t, "approved", approved.State)
}

func TestMachine_Actions(t *testing.T) {
	t.Parallel()

	t.Run("run in order before commit", func(t *testing.T) {
		t.Parallel()
		var (
			mu    sync.Mutex
			order []string
		)
		record := func(name string) statemachine.Action {
			return func(_ context.Context, from, to statemachine.State, event statemachine.Event, data any) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name+":"+from.Name()+"->"+to.Name()+":"+event.Name())
				return nil
			}
		}

		sm := statemachine.MustNew(newDocumentPersister(t, persister.NewMemoryStore()),
			statemachine.WithTransition(Draft, InReview, Submit,
				statemachine.WithAction(record("notify")),
				statemachine.WithActions(nil, record("audit")),
			),
		)

		_, err := sm.Fire(t.Context(), &Document{}, Submit, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"notify:draft->in_review:submit",
			"audit:draft->in_review:submit",
		}, order)
	})

	t.Run("failure aborts the transition", func(t *testing.T) {
		t.Parallel()
		errNotify := errors.New("notification failed")
		store := persister.NewMemoryStore()
		store.Insert(int64(9), "draft")

		sm := statemachine.MustNew(newDocumentPersister(t, store),
			statemachine.WithTransition(Draft, InReview, Submit,
				statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
					return errNotify
				}),
			),
		)

		doc := &Document{ID: 9, State: "draft"}
		_, err := sm.Fire(t.Context(), doc, Submit, nil)
		require.ErrorIs(t, err, errNotify)
		assert.Equal(t, "draft", doc.State)

		stored, err := store.LoadState(t.Context(), int64(9))
		require.NoError(t, err)
		assert.Equal(t, "draft", stored)
	})
}

func TestMachine_RetryOnStaleState(t *testing.T) {
	t.Parallel()

	const (
		Pending    = statemachine.StringState("new")
		Processing = statemachine.StringState("processing")
		Cancelled  = statemachine.StringState("cancelled")
		Cancel     = statemachine.StringEvent("cancel")
	)

	store := persister.NewMemoryStore()
	store.Insert(int64(7), "new")
	p, err := persister.New([]statemachine.State{Pending, Processing, Cancelled}, Pending,
		persister.MustStructAccessor[*Document](), store)
	require.NoError(t, err)

	// Another worker picks the order up while the first cancel is in flight.
	var calls atomic.Int64
	race := func(ctx context.Context, from, _ statemachine.State, _ statemachine.Event, _ any) error {
		if calls.Add(1) == 1 {
			n, err := store.UpdateState(ctx, persister.Update{ID: int64(7), Expected: from.Name(), Next: "processing"})
			if err != nil {
				return err
			}
			if n != 1 {
				return errors.New("concurrent update did not apply")
			}
		}
		return nil
	}

	sm := statemachine.MustNew(p,
		statemachine.WithTransition(Pending, Cancelled, Cancel, statemachine.WithAction(race)),
		statemachine.WithTransition(Processing, Cancelled, Cancel, statemachine.WithAction(race)),
	)

	order := &Document{ID: 7, State: "new"}
	state, err := sm.Fire(t.Context(), order, Cancel, nil)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, state)
	assert.Equal(t, "cancelled", order.State)
	assert.Equal(t, int64(2), calls.Load(), "actions run again on retry")

	stored, err := store.LoadState(t.Context(), int64(7))
	require.NoError(t, err)
	assert.Equal(t, "cancelled", stored)
}

func TestMachine_TooBusy(t *testing.T) {
	t.Parallel()

	p := &stalePersister{}
	sm := statemachine.MustNew[*Document](p,
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithRetryAttempts(3),
		statemachine.WithRetryInterval(time.Millisecond),
	)

	_, err := sm.Fire(t.Context(), &Document{}, Submit, nil)
	require.ErrorIs(t, err, statemachine.ErrTooBusy)
	assert.ErrorIs(t, err, statemachine.ErrStaleState)
	assert.Equal(t, int64(3), p.calls.Load())
}

func TestMachine_DefaultRetryAttempts(t *testing.T) {
	t.Parallel()

	p := &stalePersister{}
	sm := statemachine.MustNew[*Document](p,
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithRetryAttempts(0),
	)

	_, err := sm.Fire(t.Context(), &Document{}, Submit, nil)
	require.ErrorIs(t, err, statemachine.ErrTooBusy)
	assert.Equal(t, int64(statemachine.DefaultRetryAttempts), p.calls.Load())
}

func TestMachine_ContextCancelled(t *testing.T) {
	t.Parallel()

	p := &stalePersister{}
	sm := statemachine.MustNew[*Document](p,
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithRetryInterval(time.Hour),
	)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := sm.Fire(ctx, &Document{}, Submit, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestMachine_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New[*Document](nil)
	assert.ErrorIs(t, err, statemachine.ErrNilPersister)

	_, err = statemachine.New(newDocumentPersister(t, persister.NewMemoryStore()),
		statemachine.WithTransition(nil, InReview, Submit))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.New(newDocumentPersister(t, persister.NewMemoryStore()),
		statemachine.WithTransitions([]statemachine.TransitionDef{
			{From: Draft, To: InReview, Event: Submit},
			{From: InReview, To: nil, Event: Approve},
		}))
	require.ErrorIs(t, err, statemachine.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "transition[1] in_review-><nil> on approve")

	assert.Panics(t, func() {
		statemachine.MustNew[*Document](nil)
	})

	sm := statemachine.MustNew(newDocumentPersister(t, persister.NewMemoryStore()),
		statemachine.WithTransition(Draft, InReview, Submit),
	)
	ctx := t.Context()

	_, err = sm.Fire(ctx, &Document{}, nil, nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
	assert.False(t, sm.CanFire(ctx, &Document{}, nil, nil))

	_, err = sm.Fire(ctx, &Document{}, Publish, nil)
	require.True(t, statemachine.IsNoTransitionAvailableError(err))
	var noTransition *statemachine.ErrNoTransitionAvailable
	require.ErrorAs(t, err, &noTransition)
	assert.Equal(t, "draft", noTransition.StateName)
	assert.Equal(t, "publish", noTransition.EventName)

	_, err = sm.Fire(ctx, nil, Submit, nil)
	assert.True(t, persister.IsAccessorError(err))
	assert.False(t, sm.CanFire(ctx, nil, Submit, nil))
}

func TestMachine_Concurrency(t *testing.T) {
	t.Parallel()

	store := persister.NewMemoryStore()
	store.Insert(int64(3), "")
	sm := statemachine.MustNew(newDocumentPersister(t, store),
		statemachine.WithTransition(Draft, InReview, Submit),
	)

	// Every worker loads its own copy of the same row.
	assertSingleWinner(t, func() error {
		_, err := sm.Fire(t.Context(), &Document{ID: 3}, Submit, nil)
		return err
	})

	stored, err := store.LoadState(t.Context(), int64(3))
	require.NoError(t, err)
	assert.Equal(t, "in_review", stored)
}

func assertSingleWinner(t *testing.T, fire func() error) {
	t.Helper()
	const workers = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		rejected  atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fire()
			switch {
			case err == nil:
				succeeded.Add(1)
			case statemachine.IsNoTransitionAvailableError(err):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load())
	assert.Equal(t, int64(workers-1), rejected.Load())
}
