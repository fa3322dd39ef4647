package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rnaindex/internal/relations"
	"rnaindex/pkg/domain"
)

// Dialect selects placeholder syntax for the shared SQL statements.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const defaultQueryTimeout = 30 * time.Second

// Compile-time contract assertion.
var _ Store = (*SQL)(nil)

// SQL implements Store over database/sql. Every statement runs under its
// own timeout.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

// NewSQL wraps an open database handle. A non-positive timeout selects the
// default of 30s.
func NewSQL(db *sql.DB, dialect Dialect, timeout time.Duration) *SQL {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &SQL{db: db, dialect: dialect, timeout: timeout}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQL) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *SQL) Close() error { return s.db.Close() }

const entitiesQuery = `SELECT r.upi, r.md5, r.len
FROM rna r
WHERE r.upi > ?
  AND EXISTS (SELECT 1 FROM xref x WHERE x.upi = r.upi)
ORDER BY r.upi
LIMIT ?`

// Entities implements Store.
func (s *SQL) Entities(ctx context.Context, after string, limit int) ([]domain.SequenceEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(entitiesQuery), after, limit)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SequenceEntity
	for rows.Next() {
		var e domain.SequenceEntity
		var md5 sql.NullString
		if err := rows.Scan(&e.UPI, &md5, &e.Length); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.MD5 = md5.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

// XrefIDs implements Store.
func (s *SQL) XrefIDs(ctx context.Context, upis []string, taxid int64) ([]domain.XrefID, error) {
	if len(upis) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(upis)+1)
	for _, upi := range upis {
		args = append(args, upi)
	}
	q := "SELECT x.id FROM xref x WHERE x.upi IN (" + placeholders(len(upis)) + ")"
	if taxid != 0 {
		q += " AND x.taxid = ?"
		args = append(args, taxid)
	}
	q += " ORDER BY x.id"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("select xref ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []domain.XrefID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan xref id: %w", err)
		}
		ids = append(ids, domain.XrefID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate xref ids: %w", err)
	}
	return ids, nil
}

const rowsQuery = `SELECT x.id, x.taxid, x.deleted,
       a.species, a.organelle, a.external_id,
       a.description, a.non_coding_id, a.accession,
       a.function, a.gene, a.gene_synonym, a.feature_name,
       a.ncrna_class, a.product, a.common_name,
       a.parent_ac, a.seq_version,
       d.display_name,
       r1.timestamp, r2.timestamp,
       s.len
FROM xref x
JOIN rnc_accessions a ON x.ac = a.accession
JOIN rnc_database d ON x.dbid = d.id
JOIN rnc_release r1 ON x.created_release = r1.id
JOIN rnc_release r2 ON x.last_release = r2.id
JOIN rna s ON x.upi = s.upi
WHERE x.upi = ?
ORDER BY x.id`

// Rows implements Store.
func (s *SQL) Rows(ctx context.Context, upi string) ([]domain.XrefRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(rowsQuery), upi)
	if err != nil {
		return nil, fmt.Errorf("select rows for %s: %w", upi, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.XrefRow
	for rows.Next() {
		var (
			r                                                 domain.XrefRow
			id                                                int64
			deleted                                           string
			species, organelle, externalID, description       sql.NullString
			nonCodingID, function, gene, geneSynonym, feature sql.NullString
			ncrnaClass, product, commonName, parentAC         sql.NullString
			seqVersion                                        sql.NullInt64
			expertDB                                          sql.NullString
			created, last                                     releaseTime
		)
		if err := rows.Scan(&id, &r.TaxID, &deleted,
			&species, &organelle, &externalID,
			&description, &nonCodingID, &r.Accession,
			&function, &gene, &geneSynonym, &feature,
			&ncrnaClass, &product, &commonName,
			&parentAC, &seqVersion,
			&expertDB,
			&created, &last,
			&r.Length); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.XrefID = domain.XrefID(id)
		r.Deleted = deleted == "Y"
		r.Species = species.String
		r.Organelle = organelle.String
		r.ExternalID = externalID.String
		r.Description = description.String
		r.NonCodingID = nonCodingID.String
		r.Function = function.String
		r.Gene = gene.String
		r.GeneSynonym = geneSynonym.String
		r.FeatureName = feature.String
		r.NcRNAClass = ncrnaClass.String
		r.Product = product.String
		r.CommonName = commonName.String
		r.ParentAccession = domain.VersionedAccession(parentAC.String, int(seqVersion.Int64))
		r.ExpertDB = expertDB.String
		r.Created = created.Time
		r.Last = last.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

const referencesQuery = `SELECT DISTINCT r.id, r.authors, r.title, r.location, r.pubmed, r.doi
FROM xref x
JOIN rnc_reference_map m ON m.accession = x.ac
JOIN rnc_references r ON r.id = m.data_id
WHERE x.upi = ?
ORDER BY r.id`

// References implements Store.
func (s *SQL) References(ctx context.Context, upi string) ([]domain.Reference, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(referencesQuery), upi)
	if err != nil {
		return nil, fmt.Errorf("select references for %s: %w", upi, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Reference
	for rows.Next() {
		var ref domain.Reference
		var authors, title, location, pubmed, doi sql.NullString
		if err := rows.Scan(&ref.ID, &authors, &title, &location, &pubmed, &doi); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.Authors = authors.String
		ref.Title = title.String
		ref.Location = location.String
		ref.Pubmed = pubmed.String
		ref.DOI = doi.String
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}

const coordinatesQuery = `SELECT COUNT(*)
FROM xref x
JOIN rnc_coordinates c ON c.accession = x.ac
WHERE x.upi = ?
  AND c.chromosome IS NOT NULL
  AND c.chromosome <> ''`

// HasGenomicCoordinates implements Store.
func (s *SQL) HasGenomicCoordinates(ctx context.Context, upi string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var n int64
	if err := s.db.QueryRowContext(ctx, s.rebind(coordinatesQuery), upi).Scan(&n); err != nil {
		return false, fmt.Errorf("count coordinates for %s: %w", upi, err)
	}
	return n > 0, nil
}

// Seeds implements relations.Source.
func (s *SQL) Seeds(ctx context.Context, rule relations.Rule, page []domain.XrefID, taxid int64) ([]relations.Seed, error) {
	if len(page) == 0 {
		return nil, nil
	}
	key, err := keyColumn(rule.SeedKey)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(page)+4)
	for _, id := range page {
		args = append(args, int64(id))
	}
	var b strings.Builder
	b.WriteString("SELECT x.id, a.accession, " + key + "\nFROM xref x\nJOIN rnc_accessions a ON x.ac = a.accession\n")
	b.WriteString("WHERE x.id IN (" + placeholders(len(page)) + ")\n")
	b.WriteString("  AND " + key + " IS NOT NULL AND " + key + " <> ''")
	b.WriteString(predicateSQL(rule.Seed, &args))
	if taxid != 0 {
		b.WriteString(" AND x.taxid = ?")
		args = append(args, taxid)
	}
	b.WriteString("\nORDER BY x.id")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s seeds: %w", rule.Kind, err)
	}
	defer func() { _ = rows.Close() }()
	var out []relations.Seed
	for rows.Next() {
		var seed relations.Seed
		var id int64
		if err := rows.Scan(&id, &seed.Accession, &seed.Key); err != nil {
			return nil, fmt.Errorf("scan seed: %w", err)
		}
		seed.XrefID = domain.XrefID(id)
		out = append(out, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seeds: %w", err)
	}
	return out, nil
}

// Candidates implements relations.Source.
func (s *SQL) Candidates(ctx context.Context, rule relations.Rule, keys []string, taxid int64) ([]relations.Candidate, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	key, err := keyColumn(rule.TargetKey)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(keys)+4)
	for _, k := range keys {
		args = append(args, k)
	}
	var b strings.Builder
	b.WriteString("SELECT x.id, a.accession, " + key + ", x.upi, r.len\nFROM xref x\n")
	b.WriteString("JOIN rnc_accessions a ON x.ac = a.accession\nJOIN rna r ON x.upi = r.upi\n")
	b.WriteString("WHERE " + key + " IN (" + placeholders(len(keys)) + ")")
	b.WriteString(predicateSQL(rule.Target, &args))
	if taxid != 0 {
		b.WriteString(" AND x.taxid = ?")
		args = append(args, taxid)
	}
	b.WriteString("\nORDER BY a.accession, x.id")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s candidates: %w", rule.Kind, err)
	}
	defer func() { _ = rows.Close() }()
	var out []relations.Candidate
	for rows.Next() {
		var c relations.Candidate
		var id int64
		if err := rows.Scan(&id, &c.Accession, &c.Key, &c.UPI, &c.Length); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.XrefID = domain.XrefID(id)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func keyColumn(k relations.KeyField) (string, error) {
	switch k {
	case relations.KeyExternalID, relations.KeyParentAC, relations.KeyOptionalID:
		return "a." + string(k), nil
	default:
		return "", fmt.Errorf("unknown correlation key %q", k)
	}
}

func predicateSQL(p relations.Predicate, args *[]any) string {
	var b strings.Builder
	if p.Database != "" {
		b.WriteString(" AND a.db_name = ?")
		*args = append(*args, p.Database)
	}
	if p.FeatureName != "" {
		b.WriteString(" AND a.feature_name = ?")
		*args = append(*args, p.FeatureName)
	}
	if p.NcRNAClass != "" {
		b.WriteString(" AND a.ncrna_class = ?")
		*args = append(*args, p.NcRNAClass)
	}
	if p.ExcludeNcRNAClass != "" {
		b.WriteString(" AND a.ncrna_class <> '' AND a.ncrna_class <> ?")
		*args = append(*args, p.ExcludeNcRNAClass)
	}
	if p.RequireOptionalID {
		b.WriteString(" AND a.optional_id IS NOT NULL AND a.optional_id <> ''")
	}
	if p.CompositeOnly {
		b.WriteString(" AND a.is_composite = 'Y'")
	}
	if p.ActiveOnly {
		b.WriteString(" AND x.deleted = 'N'")
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQL) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
