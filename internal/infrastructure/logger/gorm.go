package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowLedgerQuery is the duration above which a ledger query is logged as slow.
const DefaultSlowLedgerQuery = 200 * time.Millisecond

// GormLogger writes the run ledger's gorm output to zap. Query traces are
// tagged with the run ID carried by the context.
type GormLogger struct {
	zl       *zap.Logger
	level    gormlogger.LogLevel
	slow     time.Duration
	notFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero disables slow query warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slow = threshold
	}
}

// WithRecordNotFound logs gorm.ErrRecordNotFound as a failed query.
// By default a lookup that finds nothing is not an error.
func WithRecordNotFound() GormLoggerOption {
	return func(l *GormLogger) {
		l.notFound = true
	}
}

// NewGormLogger creates a gorm logger on a "ledger" child of zl
func NewGormLogger(zl *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		zl:    zl.Named("ledger"),
		level: level,
		slow:  DefaultSlowLedgerQuery,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace implements gormlogger.Interface. Failed queries are errors, slow
// ones warnings, and everything else is logged at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && (l.notFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slow > 0 && elapsed > l.slow

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case failed && l.level >= gormlogger.Error:
		lvl, msg = zapcore.ErrorLevel, "ledger query failed"
	case slow && l.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "slow ledger query"
	case l.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "ledger query"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if failed {
		fields = append(fields, zap.Error(err))
	}
	if slow {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	l.forRun(ctx).Log(lvl, msg, fields...)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.forRun(ctx).Log(lvl, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) forRun(ctx context.Context) *zap.Logger {
	if runID := GetRunID(ctx); runID != "" {
		return l.zl.With(zap.String("run_id", runID))
	}
	return l.zl
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"fatal":  gormlogger.Error,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps the application log level to a gorm log level.
// Queries are only traced at debug; every other level keeps warnings and errors.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}
