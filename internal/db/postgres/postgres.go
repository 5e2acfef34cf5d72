// Package postgres opens and migrates the PostgreSQL listing database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/kailas-cloud/aptsearch/internal/db"
)

// DriverName is the database/sql driver registered by lib/pq.
const DriverName = "postgres"

// Config holds connection parameters for a PostgreSQL database.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// DB wraps *sql.DB with readiness polling and migrations.
type DB struct {
	*sql.DB
}

// Open creates a connection pool. No connection is made until first use.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	sqlDB, err := sql.Open(DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{DB: sqlDB}, nil
}

// Wrap adopts an existing pool.
func Wrap(sqlDB *sql.DB) *DB {
	return &DB{DB: sqlDB}
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (d *DB) Close() {
	_ = d.DB.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
			if err := d.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Migrate applies idempotent DDL statements in one transaction.
func (d *DB) Migrate(ctx context.Context, stmts ...string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}
