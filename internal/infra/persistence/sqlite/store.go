// Package sqlite opens the cross-reference store on an embedded SQLite file,
// used for local runs and integration tests of the shared SQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"rnaindex/internal/store"
)

// NewStore opens (creating if needed) the SQLite database at path and
// applies the exporter schema.
func NewStore(ctx context.Context, path string, timeout time.Duration) (*store.SQL, error) {
	if path == "" {
		path = "rnaindex.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single connection: sqlite serialises writers.
	db.SetMaxOpenConns(1)
	if err := store.ApplySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.NewSQL(db, store.DialectSQLite, timeout), nil
}
