package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/commerce/wcmigrate/internal/domain/legacy"
	"github.com/commerce/wcmigrate/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Connector opens the single legacy connection a run works on.
type Connector struct {
	openDB func() (*sql.DB, error)
	prefix string
	logger *zap.Logger
}

var _ legacy.Connector = (*Connector)(nil)

// NewConnector creates a Connector for the configured MySQL server.
func NewConnector(cfg *config.LegacyConfig, logger *zap.Logger) *Connector {
	dsn := cfg.DSN()
	return NewConnectorWithOpener(func() (*sql.DB, error) {
		return sql.Open("mysql", dsn)
	}, cfg.TablePrefix, logger)
}

// NewConnectorWithOpener creates a Connector using a custom *sql.DB factory.
func NewConnectorWithOpener(open func() (*sql.DB, error), prefix string, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{openDB: open, prefix: prefix, logger: logger.Named("legacy")}
}

// Open acquires one dedicated connection and verifies it. The returned
// session must be closed by the caller.
func (c *Connector) Open(ctx context.Context) (legacy.Session, error) {
	db, err := c.openDB()
	if err != nil {
		return nil, fmt.Errorf("legacy: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("legacy: acquire connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("legacy: ping: %w", err)
	}

	reader, err := NewReader(conn, c.prefix)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}

	c.logger.Info("Legacy connection acquired", zap.String("table_prefix", c.prefix))
	return &Session{Reader: reader, conn: conn, db: db, logger: c.logger}, nil
}

// Session is a Reader bound to one connection.
type Session struct {
	*Reader
	conn   *sql.Conn
	db     *sql.DB
	logger *zap.Logger
	closed bool
}

// Close releases the connection. Calling it more than once is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := errors.Join(s.conn.Close(), s.db.Close())
	if err != nil {
		s.logger.Warn("Legacy connection release failed", zap.Error(err))
		return fmt.Errorf("legacy: release connection: %w", err)
	}
	s.logger.Info("Legacy connection released")
	return nil
}
