package logger

import (
	"context"
	"log/slog"
)

// CorrelationIDKey is the attribute name used for correlation ids.
const CorrelationIDKey = "correlation_id"

type correlationIDKey struct{}

// WithCorrelationID returns a context carrying id. Loggers built with
// WithCorrelation add it to every record logged with that context, which
// ties together the conflicts and retries of one workflow run.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the id set by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

// CorrelationIDExtractor is a ContextExtractor for WithCorrelationID values.
func CorrelationIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id, ok := CorrelationIDFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String(CorrelationIDKey, id), true
}

// WithCorrelation registers CorrelationIDExtractor.
func WithCorrelation() Option {
	return WithContextExtractors(CorrelationIDExtractor)
}
