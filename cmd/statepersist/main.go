// Command statepersist runs an order workflow against a configurable store
// and lets several workers fire events on the same orders concurrently, so
// stale-state conflicts and retries show up in the logs.
//
// Configuration comes from the environment (and an optional .env file):
//
//	STATE_DRIVER=postgres PG_CONN_URL=postgres://... statepersist
//	STATE_DRIVER=redis REDIS_URL=redis://localhost:6379/0 statepersist
//	STATE_DRIVER=mongo MONGODB_URL=mongodb://localhost:27017 statepersist
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/dmitrymomot/statepersist/pkg/config"
	"github.com/dmitrymomot/statepersist/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithConfig(cfg.Log))
	logger.SetAsDefault(log)

	code := 0
	if _, err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "statepersist failed", logger.Error(err))
		code = 1
	}
	stop()
	os.Exit(code)
}

type report struct {
	Final       map[uuid.UUID]string
	Transitions int64
	Conflicts   int64
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) (*report, error) {
	def, err := loadWorkflow(cfg.Workflow)
	if err != nil {
		return nil, err
	}

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.WarnContext(ctx, "failed to shut down meter provider", logger.Error(err))
		}
	}()
	otel.SetMeterProvider(provider)

	store, closeStore, err := openStore(ctx, cfg.Driver, log)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	d, err := newDemo(cfg, def, store, otel.Meter("statepersist"), log)
	if err != nil {
		return nil, err
	}

	rep := &report{Final: make(map[uuid.UUID]string, cfg.Orders)}
	for range max(cfg.Orders, 1) {
		started := time.Now()
		id, err := d.process(ctx)
		if err != nil {
			return nil, err
		}
		state, err := d.final(ctx, id)
		if err != nil {
			return nil, err
		}
		rep.Final[id] = state
		log.InfoContext(ctx, "order settled",
			logger.EntityID(id),
			logger.ToState(state),
			logger.Duration(time.Since(started)))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	rep.Transitions = counterTotal(rm, "statepersist.transitions")
	rep.Conflicts = counterTotal(rm, "statepersist.stale_conflicts")

	log.InfoContext(ctx, "run complete",
		logger.Driver(cfg.Driver),
		slog.Int("orders", len(rep.Final)),
		logger.Group("totals",
			slog.Int64("transitions", rep.Transitions),
			slog.Int64("stale_conflicts", rep.Conflicts)))
	return rep, nil
}

func counterTotal(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
