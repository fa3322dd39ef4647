package aggregate

import (
	"context"
	"errors"
	"html"
	"reflect"
	"testing"
	"time"

	"rnaindex/internal/testutil"
	"rnaindex/pkg/domain"
)

func row(id domain.XrefID, mutate func(*domain.XrefRow)) domain.XrefRow {
	r := domain.XrefRow{
		XrefID:          id,
		TaxID:           9606,
		Species:         "Homo sapiens",
		ExpertDB:        "ENA",
		Accession:       "HG497133.1:1..73:tRNA",
		ParentAccession: "HG497133.1",
		FeatureName:     "tRNA",
		Created:         time.Date(2014, 3, 4, 0, 0, 0, 0, time.UTC),
		Last:            time.Date(2020, 5, 11, 0, 0, 0, 0, time.UTC),
		Length:          73,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func newBuffer(upi string) *Buffer {
	b := NewBuffer()
	b.Reset(domain.SequenceEntity{UPI: upi, MD5: "abc", Length: 73})
	return b
}

func TestDescriptionSingleCandidateCapitalized(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Description = "example trna" }), nil)
	if got := b.Description(); got != "Example trna" {
		t.Fatalf("expected capitalized description, got %q", got)
	}
	// pure: a second call yields the same value
	if got := b.Description(); got != "Example trna" {
		t.Fatalf("description changed on second call: %q", got)
	}
}

func TestDescriptionJoinsRNATypesAcrossSpecies(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) {
		r.Description, r.Product, r.NcRNAClass = "phe", "tRNA-Phe", "tRNA-Phe"
	}), nil)
	b.AddRow(row(2, func(r *domain.XrefRow) {
		r.Description, r.Product, r.NcRNAClass = "leu", "tRNA-Leu", "tRNA-Leu"
		r.Species, r.TaxID = "Mus musculus", 10090
	}), nil)
	if got := b.Description(); got != "tRNA-Phe/tRNA-Leu from 2 species" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestDescriptionSingleSpeciesPrefersProductThenGene(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Description, r.Product, r.Gene = "a", "tRNA-Phe", "TRF-GAA" }), nil)
	b.AddRow(row(2, func(r *domain.XrefRow) { r.Description, r.Gene = "b", "TRF-GAA" }), nil)
	if got := b.Description(); got != "Homo sapiens tRNA-Phe" {
		t.Fatalf("expected product label, got %q", got)
	}
	b.AddRow(row(3, func(r *domain.XrefRow) { r.Product = "transfer RNA-Phe" }), nil)
	if got := b.Description(); got != "Homo sapiens TRF-GAA" {
		t.Fatalf("expected gene label, got %q", got)
	}
}

func TestIsActive(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Deleted = true }), nil)
	if got := b.IsActive(); got != "Obsolete" {
		t.Fatalf("expected Obsolete, got %s", got)
	}
	b.AddRow(row(2, nil), nil)
	if got := b.IsActive(); got != "Active" {
		t.Fatalf("expected Active, got %s", got)
	}
}

func TestAddRowIsIdempotent(t *testing.T) {
	once := newBuffer("URS1")
	twice := newBuffer("URS1")
	r := row(1, func(r *domain.XrefRow) { r.Gene, r.Product = "TRF-GAA", "tRNA-Phe" })
	rel := domain.Relations{domain.KindMirbasePrecursor: {"URS2"}}
	once.AddRow(r, rel)
	twice.AddRow(r, rel)
	twice.AddRow(r, rel)
	if !reflect.DeepEqual(once.Xrefs.Values(), twice.Xrefs.Values()) ||
		!reflect.DeepEqual(once.Genes.Values(), twice.Genes.Values()) ||
		!reflect.DeepEqual(once.Relations(domain.KindMirbasePrecursor), twice.Relations(domain.KindMirbasePrecursor)) {
		t.Fatalf("duplicate row changed the aggregated sets")
	}
	if once.Description() != twice.Description() {
		t.Fatalf("duplicate row changed the description")
	}
}

func TestEscapingRoundTrip(t *testing.T) {
	raw := `5' UTR <stem & loop>`
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Description = raw }), nil)
	got := b.Description()
	if got != `5' UTR &lt;stem &amp; loop&gt;` {
		t.Fatalf("unexpected escaping %q", got)
	}
	if html.UnescapeString(got) != raw {
		t.Fatalf("escape is not reversible: %q", got)
	}
}

func TestReleaseWindow(t *testing.T) {
	b := newBuffer("URS1")
	if _, err := b.FirstSeen(); !errors.Is(err, ErrMissingReleaseDates) {
		t.Fatalf("expected missing release dates, got %v", err)
	}
	b.AddRow(row(1, nil), nil)
	b.AddRow(row(2, func(r *domain.XrefRow) {
		r.Created = time.Date(2012, 11, 18, 0, 0, 0, 0, time.UTC)
		r.Last = time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC)
	}), nil)
	first, err := b.FirstSeen()
	if err != nil || first != "18 Nov 2012" {
		t.Fatalf("unexpected first seen %q %v", first, err)
	}
	last, err := b.LastSeen()
	if err != nil || last != "11 May 2020" {
		t.Fatalf("unexpected last seen %q %v", last, err)
	}
}

func TestXrefEmission(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, nil), nil)
	b.AddRow(row(2, func(r *domain.XrefRow) {
		r.ExpertDB, r.ExternalID, r.Accession, r.ParentAccession = "RefSeq", "NR_029477", "NR_029477.1:8..30:ncRNA", "NR_029477.1"
	}), nil)
	b.AddRow(row(3, func(r *domain.XrefRow) {
		r.ExpertDB, r.ExternalID, r.NonCodingID = "tmRNA Website", "Caulo", "AE005673.1"
	}), nil)
	b.AddRow(row(4, func(r *domain.XrefRow) {
		r.Deleted, r.ExpertDB, r.ExternalID = true, "Rfam", "RF00005"
	}), nil)
	want := []XrefPair{
		{DBNameNonCoding, "HG497133.1:1..73:tRNA"},
		{DBNameENA, "HG497133.1"},
		{"REFSEQ", "NR_029477"},
		{DBNameENA, "NR_029477.1"},
		{"TMRNA_WEBSITE", "Caulo"},
	}
	if got := b.Xrefs.Values(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected xrefs\n got %v\nwant %v", got, want)
	}
}

func TestRelationsSkipDeletedRowsAndSelf(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Deleted = true }), domain.Relations{domain.KindTmRNAMate: {"URS9"}})
	b.AddRow(row(2, nil), domain.Relations{domain.KindRefseqSpliceVariant: {"URS1", "URS3", "URS2"}})
	if got := b.Relations(domain.KindTmRNAMate); len(got) != 0 {
		t.Fatalf("deleted row contributed relations %v", got)
	}
	if got := b.Relations(domain.KindRefseqSpliceVariant); !reflect.DeepEqual(got, []string{"URS3", "URS2"}) {
		t.Fatalf("unexpected splice variants %v", got)
	}
}

func TestAuthorsKeepMarkupCharactersWhole(t *testing.T) {
	b := newBuffer("URS1")
	b.AddReference(domain.Reference{ID: 1, Authors: "Smith J., R&D Consortium; <Lab> Group"})
	got := b.Authors()
	want := []string{"Smith J.", "R&amp;D Consortium", "&lt;Lab&gt; Group"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected authors %v", got)
	}
	for i, name := range got {
		if raw := html.UnescapeString(name); raw != []string{"Smith J.", "R&D Consortium", "<Lab> Group"}[i] {
			t.Fatalf("author %d does not round-trip: %q", i, raw)
		}
	}
}

func TestReferences(t *testing.T) {
	b := newBuffer("URS1")
	b.AddReference(domain.Reference{ID: 7, Authors: "Smith J., Doe A.", Title: "RNA <in> cells", Location: "Nature 1:2(2001).", Pubmed: "123"})
	b.AddReference(domain.Reference{ID: 8, Authors: "Doe A.; Roe B.", Location: "Submitted (12-MAR-2013) to the INSDC. Sanger Institute", DOI: "10.1/x"})
	if got := b.Authors(); !reflect.DeepEqual(got, []string{"Smith J.", "Doe A.", "Roe B."}) {
		t.Fatalf("unexpected authors %v", got)
	}
	if got := b.PubTitles.Values(); len(got) != 1 || got[0] != "RNA &lt;in&gt; cells" {
		t.Fatalf("unexpected titles %v", got)
	}
	if got := b.Journals.Values(); len(got) != 1 || got[0] != "Nature 1:2(2001)." {
		t.Fatalf("unexpected journals %v", got)
	}
	if got := b.InsdcSubmissions.Values(); len(got) != 1 || got[0] != "Sanger Institute" {
		t.Fatalf("unexpected submissions %v", got)
	}
	if !b.Xrefs.Contains(XrefPair{DBNamePubmed, "123"}) || !b.Xrefs.Contains(XrefPair{DBNameDOI, "10.1/x"}) {
		t.Fatalf("expected literature cross-references, got %v", b.Xrefs.Values())
	}
	if got := b.PubIDs.Values(); !reflect.DeepEqual(got, []int64{7, 8}) {
		t.Fatalf("unexpected pub ids %v", got)
	}
}

func TestPopularSpecies(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.TaxID = 562 }), nil)
	b.AddRow(row(2, func(r *domain.XrefRow) { r.TaxID = 10090 }), nil)
	b.AddRow(row(3, nil), nil)
	if got := b.PopularSpecies(); !reflect.DeepEqual(got, []int64{10090, 9606}) {
		t.Fatalf("unexpected popular species %v", got)
	}
}

func TestResetClearsState(t *testing.T) {
	b := newBuffer("URS1")
	b.AddRow(row(1, func(r *domain.XrefRow) { r.Gene = "g" }), domain.Relations{domain.KindTmRNAMate: {"URS9"}})
	b.AddReference(domain.Reference{ID: 1, Authors: "A."})
	b.SetGenomicCoordinates(true)
	b.Reset(domain.SequenceEntity{UPI: "URS2"})
	if b.Rows() != 0 || b.Genes.Len() != 0 || b.Xrefs.Len() != 0 || b.AuthorLists.Len() != 0 ||
		len(b.Relations(domain.KindTmRNAMate)) != 0 || b.HasGenomicCoordinates || b.UPI != "URS2" {
		t.Fatalf("reset left state behind")
	}
}

func TestLoadFromStore(t *testing.T) {
	st, err := testutil.Relationships().Memory()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	b := NewBuffer()
	entity := domain.SequenceEntity{UPI: testutil.MirPrecursor, Length: 110}
	edges := staticEdges{}
	ids, _ := st.XrefIDs(context.Background(), []string{testutil.MirPrecursor}, 0)
	edges[ids[0]] = domain.Relations{domain.KindMirbaseMatureProduct: {testutil.MirMatureA}}
	if err := b.Load(context.Background(), st, entity, edges); err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Rows() != 1 || b.PubIDs.Len() != 1 || b.HasGenomicCoordinates {
		t.Fatalf("unexpected buffer state rows=%d pubs=%d", b.Rows(), b.PubIDs.Len())
	}
	if got := b.Relations(domain.KindMirbaseMatureProduct); len(got) != 1 {
		t.Fatalf("expected joined relations, got %v", got)
	}
	err = b.Load(context.Background(), st, domain.SequenceEntity{UPI: "URS_MISSING"}, nil)
	if !errors.Is(err, ErrNoCrossReferences) {
		t.Fatalf("expected ErrNoCrossReferences, got %v", err)
	}
}

type staticEdges map[domain.XrefID]domain.Relations

func (s staticEdges) Relations(id domain.XrefID) domain.Relations { return s[id] }
