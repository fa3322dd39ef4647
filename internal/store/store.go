// Package store defines the read-only relational store consumed by the
// export pipeline, a database/sql implementation shared by the Postgres and
// SQLite drivers, and retry handling for transient connectivity failures.
package store

import (
	"context"

	"rnaindex/internal/relations"
	"rnaindex/pkg/domain"
)

// Driver identifies a relational store implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverMemory   Driver = "memory"   // in-memory tables (tests)
)

// Store is the read-only view of cross-reference, accession, release, and
// sequence tables used by relationship resolution and aggregation.
type Store interface {
	relations.Source

	// Entities lists sequence entities with at least one cross-reference,
	// ordered by identifier and starting strictly after the given one.
	Entities(ctx context.Context, after string, limit int) ([]domain.SequenceEntity, error)
	// XrefIDs returns the cross-reference ids owned by the given entities.
	// A zero taxid disables the taxon filter.
	XrefIDs(ctx context.Context, upis []string, taxid int64) ([]domain.XrefID, error)
	// Rows returns the joined cross-reference rows of one entity ordered by id.
	Rows(ctx context.Context, upi string) ([]domain.XrefRow, error)
	// References returns literature references attached to the entity's accessions.
	References(ctx context.Context, upi string) ([]domain.Reference, error)
	// HasGenomicCoordinates reports whether any accession of the entity is
	// mapped to a chromosome.
	HasGenomicCoordinates(ctx context.Context, upi string) (bool, error)
	Close() error
}
