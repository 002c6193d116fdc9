package persister

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a Persister.
type Option func(*options)

type options struct {
	unitOfWork UnitOfWork
	logger     *slog.Logger
	meter      metric.Meter
}

// WithUnitOfWork sets the fallback unit of work consulted when the context
// carries no Session. Without either, an entity counts as persisted as soon
// as it has an identifier.
func WithUnitOfWork(u UnitOfWork) Option {
	return func(o *options) {
		if u != nil {
			o.unitOfWork = u
		}
	}
}

// WithLogger sets the logger for conflict and recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeter enables transition and conflict counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}
