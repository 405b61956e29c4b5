package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer and meter of the migration tool
const TracerName = "wcmigrate"

// Span attribute keys
const (
	SpanAttrRunID    = "migration.run_id"
	SpanAttrPhase    = "migration.phase"
	SpanAttrLegacyID = "migration.legacy_id"
	SpanAttrTargetID = "migration.target_id"
	SpanAttrDryRun   = "migration.dry_run"
	SpanAttrCreated  = "migration.created"
	SpanAttrFailed   = "migration.failed"
)

// SpanOption configures a span started by StartSpan
type SpanOption = trace.SpanStartOption

// WithAttribute sets one attribute at span start
func WithAttribute(key string, value any) SpanOption {
	return trace.WithAttributes(kv(key, value))
}

// WithSpanKind overrides the default internal span kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return trace.WithSpanKind(kind)
}

// StartSpan starts a span on the global provider. Callers end it.
//
//	ctx, span := telemetry.StartSpan(ctx, "migration.products")
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	opts = append([]SpanOption{trace.WithSpanKind(trace.SpanKindInternal)}, opts...)
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// SetAttributes sets alternating key/value pairs on span. Pairs whose key
// is not a string are dropped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span != nil {
		span.SetAttributes(kvs(keyValues)...)
	}
}

// RecordError records err on span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a named event carrying alternating key/value pairs
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(kvs(keyValues)...))
	}
}

func kvs(keyValues []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 1; i < len(keyValues); i += 2 {
		if key, ok := keyValues[i-1].(string); ok {
			out = append(out, kv(key, keyValues[i]))
		}
	}
	return out
}

func kv(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
