package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements is the subset of the cross-reference schema read by the
// exporter. Column types are portable between Postgres and SQLite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rnc_database (
		id INTEGER PRIMARY KEY,
		descr TEXT NOT NULL,
		display_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rnc_release (
		id INTEGER PRIMARY KEY,
		dbid INTEGER,
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rna (
		upi TEXT PRIMARY KEY,
		md5 TEXT,
		len INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rnc_accessions (
		accession TEXT PRIMARY KEY,
		parent_ac TEXT,
		seq_version INTEGER,
		db_name TEXT,
		external_id TEXT,
		optional_id TEXT,
		feature_name TEXT,
		ncrna_class TEXT,
		is_composite TEXT NOT NULL DEFAULT 'N',
		non_coding_id TEXT,
		description TEXT,
		species TEXT,
		organelle TEXT,
		gene TEXT,
		gene_synonym TEXT,
		product TEXT,
		function TEXT,
		common_name TEXT,
		note TEXT,
		db_xref TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS xref (
		id BIGINT PRIMARY KEY,
		dbid INTEGER NOT NULL REFERENCES rnc_database(id),
		ac TEXT NOT NULL REFERENCES rnc_accessions(accession),
		created_release INTEGER NOT NULL REFERENCES rnc_release(id),
		last_release INTEGER NOT NULL REFERENCES rnc_release(id),
		upi TEXT NOT NULL REFERENCES rna(upi),
		deleted TEXT NOT NULL DEFAULT 'N',
		taxid BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS xref_upi_idx ON xref(upi)`,
	`CREATE INDEX IF NOT EXISTS xref_ac_idx ON xref(ac)`,
	`CREATE INDEX IF NOT EXISTS rnc_accessions_external_id_idx ON rnc_accessions(external_id)`,
	`CREATE INDEX IF NOT EXISTS rnc_accessions_parent_ac_idx ON rnc_accessions(parent_ac)`,
	`CREATE INDEX IF NOT EXISTS rnc_accessions_optional_id_idx ON rnc_accessions(optional_id)`,
	`CREATE TABLE IF NOT EXISTS rnc_references (
		id BIGINT PRIMARY KEY,
		authors TEXT,
		title TEXT,
		location TEXT,
		pubmed TEXT,
		doi TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS rnc_reference_map (
		accession TEXT NOT NULL,
		data_id BIGINT NOT NULL REFERENCES rnc_references(id)
	)`,
	`CREATE TABLE IF NOT EXISTS rnc_coordinates (
		accession TEXT NOT NULL,
		chromosome TEXT,
		primary_start BIGINT,
		primary_end BIGINT
	)`,
}

// ApplySchema creates the exporter's tables when missing. It is used for
// embedded databases and test fixtures; production stores are read-only.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}
