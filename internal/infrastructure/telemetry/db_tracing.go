package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/commerce/wcmigrate/internal/infrastructure/logger"
)

// DBTracingConfig holds configuration for ledger database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans
	SlowQueryThresh time.Duration // default: 200ms
	DBSystem        string        // default: "sqlite"
	TracerProvider  trace.TracerProvider
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: logger.DefaultSlowLedgerQuery,
		DBSystem:        "sqlite",
	}
}

// DBTracingPlugin registers otelgorm plus slow query detection on a gorm DB.
type DBTracingPlugin struct {
	config DBTracingConfig
	log    *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, zl *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, log: zl}
}

// Register installs the otelgorm plugin and the timing callbacks.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.log.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	// Registered ahead of otelgorm so the after hooks run before its span ends.
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	p.log.Debug("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	for _, op := range []string{"create", "query", "update", "delete", "raw"} {
		anchor := "gorm:" + op
		before, after := "ledger_timing:before_"+op, "ledger_timing:after_"+op

		var err error
		switch op {
		case "create":
			err = errors.Join(cb.Create().Before(anchor).Register(before, p.before), cb.Create().After(anchor).Register(after, p.after))
		case "query":
			err = errors.Join(cb.Query().Before(anchor).Register(before, p.before), cb.Query().After(anchor).Register(after, p.after))
		case "update":
			err = errors.Join(cb.Update().Before(anchor).Register(before, p.before), cb.Update().After(anchor).Register(after, p.after))
		case "delete":
			err = errors.Join(cb.Delete().Before(anchor).Register(before, p.before), cb.Delete().After(anchor).Register(after, p.after))
		case "raw":
			err = errors.Join(cb.Raw().Before(anchor).Register(before, p.before), cb.Raw().After(anchor).Register(after, p.after))
		}
		if err != nil {
			return fmt.Errorf("register %s timing: %w", op, err)
		}
	}
	return nil
}

type queryStartKey struct{}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if ctx := db.Statement.Context; ctx != nil {
		db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
	}
}

// after tags the otelgorm span with the table, the affected rows and the
// run that issued the query. Lookups that find nothing are not failures.
func (p *DBTracingPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("db.rows_affected", db.Statement.RowsAffected)}
	if table := db.Statement.Table; table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", table))
	}
	if runID := logger.GetRunID(ctx); runID != "" {
		attrs = append(attrs, attribute.String(SpanAttrRunID, runID))
	}
	span.SetAttributes(attrs...)

	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		RecordError(span, err)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_ledger_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
