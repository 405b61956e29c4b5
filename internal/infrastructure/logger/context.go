package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	runIDKey  struct{}
)

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRunID scopes ctx to a migration run. The returned logger carries a
// run_id field and is also stored in the returned context.
func WithRunID(ctx context.Context, l *zap.Logger, runID string) (context.Context, *zap.Logger) {
	scoped := l.With(zap.String("run_id", runID))
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	return WithContext(ctx, scoped), scoped
}

// GetRunID returns the run ID set by WithRunID, or "".
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// WithTraceContext tags l with the IDs of the span active in ctx
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	)
}
