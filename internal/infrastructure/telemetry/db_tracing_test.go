package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	runlog "github.com/commerce/wcmigrate/internal/infrastructure/logger"
)

type testRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testRow{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "sqlite", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	cfg := DefaultDBTracingConfig()
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	require.NoError(t, db.Create(&testRow{Name: "a"}).Error)
	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_RecordsSpans(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&testRow{Name: "a"}).Error)

	var rows []testRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	assert.Len(t, rows, 1)

	spans := sr.Ended()
	require.GreaterOrEqual(t, len(spans), 2)

	tables := map[string]bool{}
	for _, s := range spans {
		for _, a := range s.Attributes() {
			if a.Key == "db.sql.table" {
				tables[a.Value.AsString()] = true
			}
		}
	}
	assert.True(t, tables["test_rows"])
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = -time.Nanosecond
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	require.NoError(t, db.Create(&testRow{Name: "slow"}).Error)

	slow := false
	for _, s := range sr.Ended() {
		for _, e := range s.Events() {
			if e.Name == "slow_ledger_query" {
				slow = true
			}
		}
	}
	assert.True(t, slow)
}

func TestDBTracingPlugin_TagsRunID(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.TracerProvider = tp
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	ctx, _ := runlog.WithRunID(context.Background(), zap.NewNop(), "run-7")
	require.NoError(t, db.WithContext(ctx).Create(&testRow{Name: "tagged"}).Error)

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	runIDs := map[string]bool{}
	for _, s := range spans {
		for _, a := range s.Attributes() {
			if string(a.Key) == SpanAttrRunID {
				runIDs[a.Value.AsString()] = true
			}
		}
	}
	assert.True(t, runIDs["run-7"])
}
