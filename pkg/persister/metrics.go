package persister

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	transitionsCounterName = "statepersist.transitions"
	conflictsCounterName   = "statepersist.stale_conflicts"

	pathStore  = "store"
	pathMemory = "memory"
)

type metrics struct {
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("statepersist")
	}

	m := new(metrics)
	var err error

	if m.transitions, err = meter.Int64Counter(
		transitionsCounterName,
		metric.WithDescription("The total number of committed state transitions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create transitions instrument, %w", err)
	}

	if m.conflicts, err = meter.Int64Counter(
		conflictsCounterName,
		metric.WithDescription("The total number of transitions rejected because of stale state"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conflicts instrument, %w", err)
	}

	return m, nil
}

func (m *metrics) committed(ctx context.Context, path, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("state", to),
	))
}

func (m *metrics) conflict(ctx context.Context, path, expected string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("expected", expected),
	))
}
