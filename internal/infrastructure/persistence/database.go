// Package persistence stores the run ledger: one row per migration run and
// the identity mappings it produced.
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/commerce/wcmigrate/internal/infrastructure/config"
	"github.com/commerce/wcmigrate/internal/infrastructure/logger"
	"github.com/commerce/wcmigrate/internal/infrastructure/persistence/models"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

// Database is an open ledger
type Database struct {
	DB *gorm.DB
}

// Options configures how the ledger is opened
type Options struct {
	LogLevel string
	Tracing  telemetry.DBTracingConfig
}

// NewDatabase opens the SQLite ledger file at cfg.Path, creating it if needed
func NewDatabase(cfg *config.LedgerConfig, zl *zap.Logger, opts Options) (*Database, error) {
	return open(sqlite.Open(cfg.Path), zl, opts)
}

// NewInMemoryDatabase opens a ledger that lives as long as the process
func NewInMemoryDatabase(zl *zap.Logger, opts Options) (*Database, error) {
	return open(sqlite.Open(":memory:"), zl, opts)
}

func open(dialector gorm.Dialector, zl *zap.Logger, opts Options) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(zl, logger.MapGormLogLevel(opts.LogLevel)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	d := &Database{DB: db}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	// One connection: SQLite allows a single writer and each :memory:
	// connection would otherwise see its own database.
	sqlDB.SetMaxOpenConns(1)

	setup := func() error {
		if err := telemetry.NewDBTracingPlugin(opts.Tracing, zl).Register(db); err != nil {
			return fmt.Errorf("register ledger tracing: %w", err)
		}
		if err := db.AutoMigrate(&models.RunModel{}, &models.MappingModel{}); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Runs returns the run repository backed by this ledger
func (d *Database) Runs() *GormRunRepository {
	return NewGormRunRepository(d.DB)
}

// Ping verifies the ledger is still reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the ledger connection
func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("ledger connection: %w", err)
	}
	return sqlDB, nil
}
