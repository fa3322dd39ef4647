package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"rnaindex/internal/relations"
	"rnaindex/internal/store"
	"rnaindex/internal/testutil"
	"rnaindex/pkg/domain"
)

func openFixture(t *testing.T) *store.SQL {
	t.Helper()
	ctx := context.Background()
	st, err := NewStore(ctx, filepath.Join(t.TempDir(), "xref.db"), time.Second)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := testutil.Relationships().InsertSQL(ctx, st.DB()); err != nil {
		t.Fatalf("insert fixture: %v", err)
	}
	return st
}

func TestSQLiteStoreAppliesSchema(t *testing.T) {
	st := openFixture(t)
	var name string
	if err := st.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", "xref").Scan(&name); err != nil {
		t.Fatalf("lookup xref table: %v", err)
	}
	if name != "xref" {
		t.Fatalf("expected xref table, got %s", name)
	}
}

func TestSQLiteStoreEntitiesPaging(t *testing.T) {
	st := openFixture(t)
	ctx := context.Background()
	first, err := st.Entities(ctx, "", 4)
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(first) != 4 || first[0].UPI != testutil.MirPrecursor {
		t.Fatalf("unexpected first page %+v", first)
	}
	rest, err := st.Entities(ctx, first[3].UPI, 100)
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(first)+len(rest) != len(testutil.Relationships().Entities) {
		t.Fatalf("expected every entity once, got %d+%d", len(first), len(rest))
	}
	if rest[0].UPI <= first[3].UPI {
		t.Fatalf("expected strictly increasing upis")
	}
}

func TestSQLiteStoreRowsJoinReleaseAndDatabase(t *testing.T) {
	st := openFixture(t)
	rows, err := st.Rows(context.Background(), testutil.RefseqMature)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.ExpertDB != "RefSeq" || r.ParentAccession != "NR_029477.1" || r.Length != 23 {
		t.Fatalf("unexpected row %+v", r)
	}
	if !r.Created.Equal(testutil.FirstRelease) || !r.Last.Equal(testutil.LastRelease) {
		t.Fatalf("unexpected release window %v..%v", r.Created, r.Last)
	}
	if r.Deleted || r.TaxID != 10090 || r.NcRNAClass != domain.NcRNAClassMiRNA {
		t.Fatalf("unexpected row flags %+v", r)
	}
}

func TestSQLiteStoreReferencesAndCoordinates(t *testing.T) {
	st := openFixture(t)
	ctx := context.Background()
	refs, err := st.References(ctx, testutil.MirPrecursor)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs) != 1 || refs[0].Pubmed != "11679670" {
		t.Fatalf("unexpected references %+v", refs)
	}
	mapped, err := st.HasGenomicCoordinates(ctx, testutil.EnsemblVariantA)
	if err != nil || !mapped {
		t.Fatalf("expected coordinates for %s: %v", testutil.EnsemblVariantA, err)
	}
	mapped, err = st.HasGenomicCoordinates(ctx, testutil.EnsemblVariantB)
	if err != nil || mapped {
		t.Fatalf("expected no coordinates for %s: %v", testutil.EnsemblVariantB, err)
	}
}

func TestSQLiteStoreXrefIDsTaxonFilter(t *testing.T) {
	st := openFixture(t)
	ids, err := st.XrefIDs(context.Background(), []string{testutil.RefseqPrecursor, testutil.MirPrecursor}, 10090)
	if err != nil {
		t.Fatalf("xref ids: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected only the mouse xref, got %v", ids)
	}
}

// The SQL resolver must agree with the in-memory source on the shared fixture.
func TestSQLiteResolutionMatchesMemory(t *testing.T) {
	st := openFixture(t)
	mem, err := testutil.Relationships().Memory()
	if err != nil {
		t.Fatalf("memory fixture: %v", err)
	}
	ctx := context.Background()
	var upis []string
	for _, e := range testutil.Relationships().Entities {
		upis = append(upis, e.UPI)
	}
	ids, err := st.XrefIDs(ctx, upis, 0)
	if err != nil {
		t.Fatalf("xref ids: %v", err)
	}
	fromSQL, err := relations.NewResolver(st).Resolve(ctx, ids, 0)
	if err != nil {
		t.Fatalf("resolve sql: %v", err)
	}
	fromMem, err := relations.NewResolver(mem).Resolve(ctx, ids, 0)
	if err != nil {
		t.Fatalf("resolve memory: %v", err)
	}
	if fromSQL.Edges() == 0 {
		t.Fatalf("expected edges")
	}
	for _, id := range ids {
		if got, want := fromSQL.Relations(id), fromMem.Relations(id); !reflect.DeepEqual(got, want) {
			t.Fatalf("xref %d: sql %v, memory %v", id, got, want)
		}
	}
}

func TestSQLiteSpliceRulesMatchMemory(t *testing.T) {
	ctx := context.Background()
	st, err := NewStore(ctx, filepath.Join(t.TempDir(), "splice.db"), time.Second)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	f := testutil.SpliceOrdering()
	if err := f.InsertSQL(ctx, st.DB()); err != nil {
		t.Fatalf("insert fixture: %v", err)
	}
	mem, err := f.Memory()
	if err != nil {
		t.Fatalf("memory fixture: %v", err)
	}
	ids := make([]domain.XrefID, len(f.Xrefs))
	for i, x := range f.Xrefs {
		ids[i] = x.ID
	}
	fromSQL, err := relations.NewResolver(st).Resolve(ctx, ids, 0)
	if err != nil {
		t.Fatalf("resolve sql: %v", err)
	}
	fromMem, err := relations.NewResolver(mem).Resolve(ctx, ids, 0)
	if err != nil {
		t.Fatalf("resolve memory: %v", err)
	}
	for _, id := range ids {
		if got, want := fromSQL.Relations(id), fromMem.Relations(id); !reflect.DeepEqual(got, want) {
			t.Fatalf("xref %d: sql %v, memory %v", id, got, want)
		}
	}
	// xref 4 is the class-less RefSeq transcript; xref 1 the Ensembl seed.
	if got := fromSQL.Partners(4, domain.KindRefseqSpliceVariant); len(got) != 0 {
		t.Fatalf("class-less row seeded: %v", got)
	}
	if got := fromSQL.Partners(1, domain.KindEnsemblSpliceVariant); !reflect.DeepEqual(got, []string{testutil.EnsemblShort, testutil.EnsemblLong}) {
		t.Fatalf("unexpected ensembl order %v", got)
	}
}
