package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRunID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, enriched := WithRunID(context.Background(), zap.New(core), "6f1c")
	enriched.Info("phase started")

	assert.Equal(t, "6f1c", GetRunID(ctx))
	assert.Equal(t, "", GetRunID(context.Background()))
	assert.Same(t, enriched, FromContext(ctx))
	assert.Equal(t, "6f1c", recorded.All()[0].ContextMap()["run_id"])
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	assert.Same(t, logger, WithTraceContext(context.Background(), logger))

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithTraceContext(ctx, logger).Info("traced")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "0123456789abcdef0123456789abcdef", fields["trace_id"])
	assert.Equal(t, "0123456789abcdef", fields["span_id"])
}
