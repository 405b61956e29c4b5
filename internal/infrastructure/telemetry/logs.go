package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commerce/wcmigrate/internal/infrastructure/logger"
)

// NewLogCore returns a zap core that emits entries enabled by level as
// OpenTelemetry log records on provider.
func NewLogCore(provider otellog.LoggerProvider, name string, level zapcore.LevelEnabler) zapcore.Core {
	return &levelCore{
		Core:  otelzap.NewCore(name, otelzap.WithLoggerProvider(provider)),
		level: level,
	}
}

// BridgeLogs tees l into the OTLP log pipeline. Without log export l is
// returned unchanged.
func (p *Providers) BridgeLogs(l *zap.Logger, level zapcore.LevelEnabler) *zap.Logger {
	if p.logs == nil {
		return l
	}
	return logger.Tee(l, NewLogCore(p.logs, TracerName, level))
}

// levelCore applies the console log level to the bridge, which would
// otherwise export every level the SDK accepts.
type levelCore struct {
	zapcore.Core
	level zapcore.LevelEnabler
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}
