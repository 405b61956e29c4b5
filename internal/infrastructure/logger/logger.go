// Package logger builds the zap loggers used by the migration tool and
// carries run-scoped loggers through context.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleTimeLayout is used by the console encoder when no layout is configured.
const ConsoleTimeLayout = "2006-01-02 15:04:05"

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

// New builds a logger writing to cfg.Output. A file output is opened in
// append mode so consecutive runs share one log.
func New(cfg *Config) (*zap.Logger, error) {
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		enc = zapcore.NewJSONEncoder(encoderConfig(cfg.TimeFormat, false))
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig(cfg.TimeFormat, true))
	}

	return zap.New(
		zapcore.NewCore(enc, sink, ParseLevel(cfg.Level)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// ParseLevel converts a level name to a zapcore.Level. Unknown names yield info.
func ParseLevel(level string) zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil || name == "" {
		return zapcore.InfoLevel
	}
	return l
}

// ForPhase returns a child logger named and tagged after a migration phase
func ForPhase(l *zap.Logger, phase string) *zap.Logger {
	return l.Named(phase).With(zap.String("phase", phase))
}

// Tee returns l writing to extra as well. Fields already attached to l stay
// on its original core; fields added afterwards reach both.
func Tee(l *zap.Logger, extra zapcore.Core) *zap.Logger {
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, extra)
	}))
}

// Sync flushes buffered entries
func Sync(l *zap.Logger) error {
	return l.Sync()
}

func encoderConfig(layout string, console bool) zapcore.EncoderConfig {
	if layout == "" {
		layout = ConsoleTimeLayout
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	if console {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
	}
	return ec
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
