package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "console on stdout", cfg: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "json on stderr", cfg: &Config{Level: "debug", Format: "json", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"}},
		{name: "zero config", cfg: &Config{}},
		{name: "unwritable file", cfg: &Config{Output: filepath.Join(t.TempDir(), "missing", "run.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_FileOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.log")

	for i := 0; i < 2; i++ {
		logger, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		logger.Info("category created", zap.Int64("legacy_id", 12))
		require.NoError(t, logger.Sync())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `"legacy_id":12`))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.level))
		})
	}
}

func TestForPhase(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ForPhase(zap.New(core), "products").Info("product created")

	entry := recorded.All()[0]
	assert.Equal(t, "products", entry.LoggerName)
	assert.Equal(t, "products", entry.ContextMap()["phase"])
}

func TestTee(t *testing.T) {
	baseCore, base := observer.New(zapcore.InfoLevel)
	extraCore, extra := observer.New(zapcore.WarnLevel)

	l := ForPhase(Tee(zap.New(baseCore), extraCore), "customers")
	l.Info("customer created")
	l.Warn("duplicate email")

	assert.Equal(t, 2, base.Len())
	require.Equal(t, 1, extra.Len())
	entry := extra.All()[0]
	assert.Equal(t, "duplicate email", entry.Message)
	assert.Equal(t, "customers", entry.LoggerName)
	assert.Equal(t, "customers", entry.ContextMap()["phase"])
}
