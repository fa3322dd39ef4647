// Package testutil provides a shared cross-reference fixture loadable into
// the in-memory store and into any database carrying the exporter schema.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"rnaindex/internal/infra/persistence/memory"
	"rnaindex/pkg/domain"
)

// Release dates shared by every fixture cross-reference.
var (
	FirstRelease = time.Date(2014, time.March, 4, 0, 0, 0, 0, time.UTC)
	LastRelease  = time.Date(2020, time.May, 11, 0, 0, 0, 0, time.UTC)
)

// Fixture upis, grouped by the relationship they exercise.
const (
	MirPrecursor     = "URS00000000A1"
	MirMatureA       = "URS00000000A2"
	MirMatureB       = "URS00000000A3"
	MirPrecursorAlt  = "URS00000000A4"
	RefseqPrecursor  = "URS00000000B1"
	RefseqMature     = "URS00000000B2"
	SpliceLong       = "URS00000000C1"
	SpliceMedium     = "URS00000000C2"
	SpliceDeleted    = "URS00000000C3"
	SpliceShort      = "URS00000000C4"
	EnsemblVariantA  = "URS00000000D1"
	EnsemblVariantB  = "URS00000000D2"
	TmRNAPiece       = "URS00000000E1"
	TmRNAMate        = "URS00000000E2"
	Standalone       = "URS00000000F1"
	DatabaseENA      = 1
	DatabaseMirbase  = 2
	DatabaseRefseq   = 3
	DatabaseEnsembl  = 4
	DatabaseTmRNAWeb = 5
)

// AccessionReference links a literature reference to an accession.
type AccessionReference struct {
	Accession string
	Reference domain.Reference
}

// Coordinate maps an accession onto a chromosome.
type Coordinate struct {
	Accession  string
	Chromosome string
}

// Fixture is a self-consistent set of store rows.
type Fixture struct {
	Databases   map[int]string
	Entities    []domain.SequenceEntity
	Accessions  []domain.Accession
	Xrefs       []domain.CrossReference
	References  []AccessionReference
	Coordinates []Coordinate
}

// Relationships returns a fixture covering every relationship kind, a
// soft-deleted splice variant, and a standalone entity without partners.
func Relationships() Fixture {
	f := Fixture{
		Databases: map[int]string{
			DatabaseENA:      "ENA",
			DatabaseMirbase:  "miRBase",
			DatabaseRefseq:   "RefSeq",
			DatabaseEnsembl:  "Ensembl",
			DatabaseTmRNAWeb: "tmRNA Website",
		},
	}
	entity := func(upi string, length int) {
		f.Entities = append(f.Entities, domain.SequenceEntity{UPI: upi, MD5: fmt.Sprintf("%032x", len(f.Entities)+1), Length: length})
	}
	entity(MirPrecursor, 110)
	entity(MirMatureA, 22)
	entity(MirMatureB, 21)
	entity(MirPrecursorAlt, 95)
	entity(RefseqPrecursor, 80)
	entity(RefseqMature, 23)
	entity(SpliceLong, 500)
	entity(SpliceMedium, 300)
	entity(SpliceDeleted, 250)
	entity(SpliceShort, 200)
	entity(EnsemblVariantA, 1200)
	entity(EnsemblVariantB, 900)
	entity(TmRNAPiece, 150)
	entity(TmRNAMate, 210)
	entity(Standalone, 73)

	var nextID domain.XrefID
	add := func(upi string, db int, taxid int64, deleted bool, a domain.Accession) {
		nextID++
		f.Accessions = append(f.Accessions, a)
		f.Xrefs = append(f.Xrefs, domain.CrossReference{
			ID:         nextID,
			Accession:  a.Accession,
			DatabaseID: db,
			UPI:        upi,
			Deleted:    deleted,
			TaxID:      taxid,
			Created:    FirstRelease,
			Last:       LastRelease,
		})
	}

	human := func(a domain.Accession) domain.Accession {
		a.Species = "Homo sapiens"
		a.CommonName = "human"
		return a
	}

	add(MirPrecursor, DatabaseMirbase, 9606, false, human(domain.Accession{
		Accession: "MI0000060", ParentAC: "MI0000060", SeqVersion: 1, Database: domain.DatabaseMirbase,
		ExternalID: "MI0000060", FeatureName: domain.FeaturePrecursorRNA, NcRNAClass: "precursor_RNA",
		Description: "Homo sapiens hsa-let-7a-1 precursor", Gene: "hsa-let-7a-1",
	}))
	add(MirMatureA, DatabaseMirbase, 9606, false, human(domain.Accession{
		Accession: "MIMAT0000062", ParentAC: "MI0000060", SeqVersion: 1, Database: domain.DatabaseMirbase,
		ExternalID: "MI0000060", FeatureName: domain.FeatureNcRNA, NcRNAClass: domain.NcRNAClassMiRNA,
		Description: "Homo sapiens hsa-let-7a-5p", Product: "hsa-let-7a-5p",
	}))
	add(MirMatureB, DatabaseMirbase, 9606, false, human(domain.Accession{
		Accession: "MIMAT0004481", ParentAC: "MI0000060", SeqVersion: 1, Database: domain.DatabaseMirbase,
		ExternalID: "MI0000060", FeatureName: domain.FeatureNcRNA, NcRNAClass: domain.NcRNAClassMiRNA,
		Description: "Homo sapiens hsa-let-7a-3p", Product: "hsa-let-7a-3p",
	}))
	add(MirPrecursorAlt, DatabaseMirbase, 9606, false, human(domain.Accession{
		Accession: "MI0000061", ParentAC: "MI0000061", SeqVersion: 1, Database: domain.DatabaseMirbase,
		ExternalID: "MI0000060", FeatureName: domain.FeaturePrecursorRNA, NcRNAClass: "precursor_RNA",
		Description: "Homo sapiens hsa-let-7a-2 precursor",
	}))

	add(RefseqPrecursor, DatabaseRefseq, 10090, false, domain.Accession{
		Accession: "NR_029477.1:1..80:precursor_RNA", ParentAC: "NR_029477", SeqVersion: 1, Database: domain.DatabaseRefseq,
		ExternalID: "NR_029477", FeatureName: domain.FeaturePrecursorRNA, NonCodingID: "NR_029477.1",
		Description: "Mus musculus microRNA 21a (Mir21a), microRNA", Species: "Mus musculus", CommonName: "house mouse",
	})
	add(RefseqMature, DatabaseRefseq, 10090, false, domain.Accession{
		Accession: "NR_029477.1:8..30:ncRNA", ParentAC: "NR_029477", SeqVersion: 1, Database: domain.DatabaseRefseq,
		ExternalID: "NR_029477", FeatureName: domain.FeatureNcRNA, NcRNAClass: domain.NcRNAClassMiRNA, NonCodingID: "NR_029477.1",
		Description: "Mus musculus mmu-miR-21a-5p", Species: "Mus musculus", CommonName: "house mouse",
	})

	splice := func(upi, acc string, deleted bool) {
		add(upi, DatabaseRefseq, 9606, deleted, human(domain.Accession{
			Accession: acc, ParentAC: acc[:9], SeqVersion: 1, Database: domain.DatabaseRefseq,
			ExternalID: acc[:9], OptionalID: "GENE:100126356", FeatureName: domain.FeatureNcRNA, NcRNAClass: "lncRNA",
			NonCodingID: acc[:9] + ".1", Description: "Homo sapiens long intergenic non-protein coding RNA 1",
		}))
	}
	splice(SpliceLong, "NR_100001.1:1..500:ncRNA", false)
	splice(SpliceMedium, "NR_100002.1:1..300:ncRNA", false)
	splice(SpliceDeleted, "NR_100003.1:1..250:ncRNA", true)
	splice(SpliceShort, "NR_100004.1:1..200:ncRNA", false)

	add(EnsemblVariantA, DatabaseEnsembl, 9606, false, human(domain.Accession{
		Accession: "ENST00000516494.1", ParentAC: "ENST00000516494", SeqVersion: 1, Database: domain.DatabaseEnsembl,
		ExternalID: "ENST00000516494", OptionalID: "ENSG00000251562", FeatureName: domain.FeatureNcRNA, NcRNAClass: "lncRNA",
		Description: "Homo sapiens metastasis associated lung adenocarcinoma transcript 1",
	}))
	add(EnsemblVariantB, DatabaseEnsembl, 9606, false, human(domain.Accession{
		Accession: "ENST00000534336.1", ParentAC: "ENST00000534336", SeqVersion: 1, Database: domain.DatabaseEnsembl,
		ExternalID: "ENST00000534336", OptionalID: "ENSG00000251562", FeatureName: domain.FeatureNcRNA, NcRNAClass: "lncRNA",
		Description: "Homo sapiens metastasis associated lung adenocarcinoma transcript 1",
	}))

	add(TmRNAPiece, DatabaseTmRNAWeb, 562, false, domain.Accession{
		Accession: "Caulo_crese_CB15", ParentAC: "Caulo_crese_CB15", SeqVersion: 1, Database: domain.DatabaseTmRNAWeb,
		ExternalID: "Caulo_crese_CB15", OptionalID: "AE005673", FeatureName: "tmRNA", NcRNAClass: "tmRNA",
		Description: "Caulobacter crescentus two-piece tmRNA", Species: "Caulobacter crescentus",
	})
	add(TmRNAMate, DatabaseENA, 562, false, domain.Accession{
		Accession: "AE005673.1:1..210:tmRNA", ParentAC: "AE005673", SeqVersion: 1, Database: "ENA",
		ExternalID: "AE005673", FeatureName: "tmRNA", NcRNAClass: "tmRNA", IsComposite: true,
		Description: "Caulobacter crescentus tmRNA", Species: "Caulobacter crescentus",
	})

	add(Standalone, DatabaseENA, 9606, false, human(domain.Accession{
		Accession: "HG497133.1:1..73:tRNA", ParentAC: "HG497133", SeqVersion: 1, Database: "ENA",
		ExternalID: "HG497133", FeatureName: "tRNA", Description: "Homo sapiens tRNA-Phe", Gene: "TRF-GAA",
	}))

	f.References = []AccessionReference{
		{Accession: "MI0000060", Reference: domain.Reference{
			ID: 1, Authors: "Lagos-Quintana M., Rauhut R., Lendeckel W.", Title: "Identification of novel genes coding for small expressed RNAs",
			Location: "Science 294:853-858(2001).", Pubmed: "11679670", DOI: "10.1126/science.1064921",
		}},
		{Accession: "MIMAT0000062", Reference: domain.Reference{
			ID: 1, Authors: "Lagos-Quintana M., Rauhut R., Lendeckel W.", Title: "Identification of novel genes coding for small expressed RNAs",
			Location: "Science 294:853-858(2001).", Pubmed: "11679670", DOI: "10.1126/science.1064921",
		}},
		{Accession: "HG497133.1:1..73:tRNA", Reference: domain.Reference{
			ID: 2, Authors: "Smith J.", Location: "Submitted (12-MAR-2013) to the INSDC. Sanger Institute, Hinxton",
		}},
	}
	f.Coordinates = []Coordinate{
		{Accession: "ENST00000516494.1", Chromosome: "11"},
		{Accession: "ENST00000534336.1", Chromosome: ""},
	}
	return f
}

// Splice-ordering fixture upis.
const (
	EnsemblSeed      = "URS00000000G0"
	EnsemblLong      = "URS00000000G1"
	EnsemblShort     = "URS00000000G2"
	RefseqClassless  = "URS00000000H1"
	RefseqClassified = "URS00000000H2"
)

// SpliceOrdering returns an Ensembl gene whose transcripts sort by accession
// opposite to their length, and a RefSeq gene where one transcript carries
// no ncRNA class.
func SpliceOrdering() Fixture {
	f := Fixture{Databases: map[int]string{DatabaseRefseq: "RefSeq", DatabaseEnsembl: "Ensembl"}}
	add := func(upi string, length int, db int, a domain.Accession) {
		id := domain.XrefID(len(f.Xrefs) + 1)
		a.SeqVersion = 1
		a.Species = "Homo sapiens"
		a.FeatureName = domain.FeatureNcRNA
		f.Entities = append(f.Entities, domain.SequenceEntity{UPI: upi, MD5: fmt.Sprintf("%032x", id), Length: length})
		f.Accessions = append(f.Accessions, a)
		f.Xrefs = append(f.Xrefs, domain.CrossReference{
			ID: id, Accession: a.Accession, DatabaseID: db, UPI: upi, TaxID: 9606,
			Created: FirstRelease, Last: LastRelease,
		})
	}
	ensembl := func(upi string, length int, acc string) {
		add(upi, length, DatabaseEnsembl, domain.Accession{
			Accession: acc + ".1", ParentAC: acc, Database: domain.DatabaseEnsembl, ExternalID: acc,
			OptionalID: "ENSG00000000001", NcRNAClass: "lncRNA",
		})
	}
	ensembl(EnsemblSeed, 400, "ENST00000000000")
	ensembl(EnsemblLong, 900, "ENST00000000001")
	ensembl(EnsemblShort, 100, "ENST00000000002")

	refseq := func(upi, acc, class string) {
		add(upi, 300, DatabaseRefseq, domain.Accession{
			Accession: acc + ".1:1..300:ncRNA", ParentAC: acc, Database: domain.DatabaseRefseq, ExternalID: acc,
			OptionalID: "GENE:7", NcRNAClass: class, NonCodingID: acc + ".1",
		})
	}
	refseq(RefseqClassless, "NR_200001", "")
	refseq(RefseqClassified, "NR_200002", "lncRNA")
	return f
}

// Memory loads the fixture into a fresh in-memory store.
func (f Fixture) Memory() (*memory.Store, error) {
	s := memory.NewStore()
	for id, name := range f.Databases {
		s.AddDatabase(id, name)
	}
	for _, e := range f.Entities {
		s.AddEntity(e)
	}
	for _, a := range f.Accessions {
		s.AddAccession(a)
	}
	for _, x := range f.Xrefs {
		if err := s.AddXref(x); err != nil {
			return nil, err
		}
	}
	for _, r := range f.References {
		s.AddReference(r.Accession, r.Reference)
	}
	for _, c := range f.Coordinates {
		s.AddCoordinates(c.Accession, c.Chromosome)
	}
	return s, nil
}

// InsertSQL writes the fixture into db, which must already carry the
// exporter schema and accept ? placeholders.
func (f Fixture) InsertSQL(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(q string, args ...any) {
		if err != nil {
			return
		}
		if _, e := tx.ExecContext(ctx, q, args...); e != nil {
			err = fmt.Errorf("%s: %w", q, e)
		}
	}

	ids := make([]int, 0, len(f.Databases))
	for id := range f.Databases {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		exec(`INSERT INTO rnc_database (id, descr, display_name) VALUES (?, ?, ?)`, id, f.Databases[id], f.Databases[id])
	}

	releases := make(map[time.Time]int)
	release := func(ts time.Time) int {
		if id, ok := releases[ts]; ok {
			return id
		}
		id := len(releases) + 1
		releases[ts] = id
		exec(`INSERT INTO rnc_release (id, timestamp) VALUES (?, ?)`, id, ts.UTC().Format("2006-01-02 15:04:05"))
		return id
	}

	for _, e := range f.Entities {
		exec(`INSERT INTO rna (upi, md5, len) VALUES (?, ?, ?)`, e.UPI, e.MD5, e.Length)
	}
	for _, a := range f.Accessions {
		composite := "N"
		if a.IsComposite {
			composite = "Y"
		}
		exec(`INSERT INTO rnc_accessions (accession, parent_ac, seq_version, db_name, external_id, optional_id,
			feature_name, ncrna_class, is_composite, non_coding_id, description, species, organelle, gene,
			gene_synonym, product, function, common_name, note, db_xref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.Accession, nullable(a.ParentAC), a.SeqVersion, a.Database, nullable(a.ExternalID), nullable(a.OptionalID),
			nullable(a.FeatureName), nullable(a.NcRNAClass), composite, nullable(a.NonCodingID), nullable(a.Description),
			nullable(a.Species), nullable(a.Organelle), nullable(a.Gene), nullable(a.GeneSynonym), nullable(a.Product),
			nullable(a.Function), nullable(a.CommonName), nullable(a.Note), nullable(a.DBXref))
	}
	for _, x := range f.Xrefs {
		deleted := "N"
		if x.Deleted {
			deleted = "Y"
		}
		created, last := release(x.Created), release(x.Last)
		exec(`INSERT INTO xref (id, dbid, ac, created_release, last_release, upi, deleted, taxid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(x.ID), x.DatabaseID, x.Accession, created, last, x.UPI, deleted, x.TaxID)
	}
	refs := make(map[int64]bool)
	for _, r := range f.References {
		if !refs[r.Reference.ID] {
			refs[r.Reference.ID] = true
			exec(`INSERT INTO rnc_references (id, authors, title, location, pubmed, doi) VALUES (?, ?, ?, ?, ?, ?)`,
				r.Reference.ID, nullable(r.Reference.Authors), nullable(r.Reference.Title), nullable(r.Reference.Location),
				nullable(r.Reference.Pubmed), nullable(r.Reference.DOI))
		}
		exec(`INSERT INTO rnc_reference_map (accession, data_id) VALUES (?, ?)`, r.Accession, r.Reference.ID)
	}
	for _, c := range f.Coordinates {
		exec(`INSERT INTO rnc_coordinates (accession, chromosome) VALUES (?, ?)`, c.Accession, nullable(c.Chromosome))
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
