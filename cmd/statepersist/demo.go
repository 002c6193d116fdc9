package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/statepersist/pkg/logger"
	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/statemachine"
)

// Order is the entity driven through the workflow.
type Order struct {
	ID    uuid.UUID `fsm:"id"`
	State string    `fsm:"state"`
}

type demo struct {
	def     *statemachine.Definition
	store   entityStore
	machine *statemachine.Machine[*Order]
	workers int
	log     *slog.Logger
}

func newDemo(cfg appConfig, def *statemachine.Definition, store entityStore, meter metric.Meter, log *slog.Logger) (*demo, error) {
	p, err := persister.New(def.States(), def.Start(), persister.MustStructAccessor[*Order](), store,
		persister.WithLogger(log),
		persister.WithMeter(meter),
	)
	if err != nil {
		return nil, err
	}

	machine, err := statemachine.New(p,
		def.Option(nil),
		statemachine.WithRetryAttempts(cfg.RetryAttempts),
		statemachine.WithRetryInterval(cfg.RetryInterval),
		statemachine.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return &demo{
		def:     def,
		store:   store,
		machine: machine,
		workers: max(cfg.Workers, 1),
		log:     log,
	}, nil
}

// process seeds a new order and lets every worker race it through the workflow.
// It returns the order id.
func (d *demo) process(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	ctx = logger.WithCorrelationID(ctx, uuid.NewString())
	if err := d.store.Insert(ctx, id, ""); err != nil {
		return uuid.Nil, err
	}
	d.log.InfoContext(ctx, "order created", logger.EntityID(id))

	g, gctx := errgroup.WithContext(ctx)
	for w := range d.workers {
		g.Go(func() error {
			return d.work(gctx, id, w)
		})
	}
	return id, g.Wait()
}

func (d *demo) work(ctx context.Context, id uuid.UUID, worker int) error {
	order := &Order{ID: id}
	session := persister.NewSession()
	session.Track(order)
	ctx = persister.WithSession(ctx, session)

	log := d.log.With(logger.EntityID(id), slog.Int("worker", worker))

	for _, event := range script(d.def, worker) {
		from := order.State
		state, err := d.machine.Fire(ctx, order, event, nil)
		switch {
		case err == nil:
			log.InfoContext(ctx, "transition committed",
				logger.Event(event.Name()),
				logger.FromState(from),
				logger.ToState(state.Name()))
		case statemachine.IsNoTransitionAvailableError(err), statemachine.IsTransitionRejectedError(err):
			log.DebugContext(ctx, "event skipped", logger.Event(event.Name()), logger.Error(err))
			// The copy may be behind the store when the event does not apply.
			if err := d.reload(ctx, order); err != nil {
				return err
			}
		case errors.Is(err, statemachine.ErrTooBusy):
			log.WarnContext(ctx, "gave up on event", logger.Event(event.Name()), logger.Error(err))
		default:
			return err
		}
	}
	return nil
}

func (d *demo) reload(ctx context.Context, order *Order) error {
	state, err := d.store.LoadState(ctx, order.ID)
	if err != nil {
		return err
	}
	order.State = state
	return nil
}

// final returns the stored state of id, resolving an unset state to the start state.
func (d *demo) final(ctx context.Context, id uuid.UUID) (string, error) {
	state, err := d.store.LoadState(ctx, id)
	if err != nil {
		return "", err
	}
	if state == "" {
		return d.def.StartState, nil
	}
	return state, nil
}
