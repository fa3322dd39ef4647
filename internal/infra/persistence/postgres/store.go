// Package postgres opens the read-only cross-reference store on a
// PostgreSQL server through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"rnaindex/internal/store"
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with config defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/rnacen?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Options tunes the connection pool.
type Options struct {
	QueryTimeout time.Duration
	MaxOpenConns int
	// ApplySchema creates missing tables; only meant for scratch databases.
	ApplySchema bool
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and verifies connectivity.
func NewStore(ctx context.Context, dsn string, opts Options) (*store.SQL, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if opts.ApplySchema {
		if err := store.ApplySchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store.NewSQL(db, store.DialectPostgres, opts.QueryTimeout), nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
