// Package aggregate folds the redundant cross-reference rows of one sequence
// entity into deduplicated, typed field sets and derives the scalar values
// (activity, release window, description) rendered into its search document.
package aggregate

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"rnaindex/pkg/domain"
)

// DateLayout renders release dates, e.g. "18 Nov 2014".
const DateLayout = "02 Jan 2006"

var (
	// ErrNoCrossReferences is returned for an entity without any rows.
	ErrNoCrossReferences = errors.New("aggregate: entity has no cross-references")
	// ErrMissingReleaseDates is returned when no release timestamp was accumulated.
	ErrMissingReleaseDates = errors.New("aggregate: no release dates accumulated")
)

// Cross-reference labels emitted in addition to expert database names.
const (
	DBNameNonCoding = "NON-CODING"
	DBNameENA       = "ENA"
	DBNamePubmed    = "PUBMED"
	DBNameDOI       = "DOI"
	DBNameTaxonomy  = "ncbi_taxonomy_id"
)

// popularSpecies lists commonly studied organisms used for faceting.
var popularSpecies = map[int64]struct{}{
	9606:   {}, // human
	10090:  {}, // mouse
	3702:   {}, // Arabidopsis thaliana
	6239:   {}, // Caenorhabditis elegans
	7227:   {}, // Drosophila melanogaster
	559292: {}, // Saccharomyces cerevisiae S288c
	4896:   {}, // Schizosaccharomyces pombe
}

// expert databases whose rows are indexed by their own external id.
var keyedByExternalID = map[string]struct{}{
	"RFAM":   {},
	"REFSEQ": {},
	"RDP":    {},
}

var submissionPrefix = regexp.MustCompile(`Submitted \(\d{2}-\w{3}-\d{4}\) to the INSDC\. ?`)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape replaces markup-significant characters in free text.
func Escape(s string) string { return escaper.Replace(s) }

// XrefPair is one (database label, key) cross-reference of a document.
type XrefPair struct {
	DBName string
	DBKey  string
}

// Buffer accumulates the rows of one entity. Free-text members are stored
// escaped. A Buffer is reused across entities via Reset.
type Buffer struct {
	UPI    string
	MD5    string
	Length int

	TaxIDs       OrderedSet[int64]
	Species      OrderedSet[string]
	Organelles   OrderedSet[string]
	ExpertDBs    OrderedSet[string]
	Descriptions OrderedSet[string]
	Functions    OrderedSet[string]
	Genes        OrderedSet[string]
	GeneSynonyms OrderedSet[string]
	Products     OrderedSet[string]
	CommonNames  OrderedSet[string]
	RNATypes     OrderedSet[string]
	Created      OrderedSet[time.Time]
	Last         OrderedSet[time.Time]
	Xrefs        OrderedSet[XrefPair]

	AuthorLists      OrderedSet[string] // raw, escaped per name by Authors
	Journals         OrderedSet[string]
	InsdcSubmissions OrderedSet[string]
	PubTitles        OrderedSet[string]
	PubIDs           OrderedSet[int64]

	HasGenomicCoordinates bool

	relations map[domain.RelationshipKind]*OrderedSet[string]
	rows      int
	active    int
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{relations: make(map[domain.RelationshipKind]*OrderedSet[string])}
}

// Reset clears every set and starts accumulating for entity.
func (b *Buffer) Reset(entity domain.SequenceEntity) {
	b.UPI = entity.UPI
	b.MD5 = entity.MD5
	b.Length = entity.Length
	for _, s := range []*OrderedSet[string]{
		&b.Species, &b.Organelles, &b.ExpertDBs, &b.Descriptions, &b.Functions,
		&b.Genes, &b.GeneSynonyms, &b.Products, &b.CommonNames, &b.RNATypes,
		&b.AuthorLists, &b.Journals, &b.InsdcSubmissions, &b.PubTitles,
	} {
		s.Reset()
	}
	b.TaxIDs.Reset()
	b.PubIDs.Reset()
	b.Created.Reset()
	b.Last.Reset()
	b.Xrefs.Reset()
	if b.relations == nil {
		b.relations = make(map[domain.RelationshipKind]*OrderedSet[string])
	}
	for _, s := range b.relations {
		s.Reset()
	}
	b.HasGenomicCoordinates = false
	b.rows = 0
	b.active = 0
}

// AddRow folds one joined row and the relationship partners resolved for its
// cross-reference. Deleted rows count towards activity and the scalar sets
// but contribute neither cross-references nor relationships.
func (b *Buffer) AddRow(row domain.XrefRow, rel domain.Relations) {
	b.rows++
	if !row.Deleted {
		b.active++
	}
	if row.TaxID != 0 {
		b.TaxIDs.Add(row.TaxID)
	}
	addText(&b.Species, row.Species)
	addText(&b.Organelles, row.Organelle)
	addText(&b.ExpertDBs, row.ExpertDB)
	addText(&b.Descriptions, row.Description)
	addText(&b.Functions, row.Function)
	addText(&b.Genes, row.Gene)
	addText(&b.GeneSynonyms, row.GeneSynonym)
	addText(&b.Products, row.Product)
	addText(&b.CommonNames, row.CommonName)
	if !row.Created.IsZero() {
		b.Created.Add(row.Created.UTC())
	}
	if !row.Last.IsZero() {
		b.Last.Add(row.Last.UTC())
	}
	rnaType := row.NcRNAClass
	if rnaType == "" {
		rnaType = row.FeatureName
	}
	addText(&b.RNATypes, strings.ReplaceAll(rnaType, "_", " "))
	if row.Length > 0 {
		b.Length = row.Length
	}
	if row.Deleted {
		return
	}
	b.addXrefs(row)
	for kind, partners := range rel {
		for _, upi := range partners {
			if upi == "" || upi == b.UPI {
				continue
			}
			b.relationSet(kind).Add(upi)
		}
	}
}

func (b *Buffer) addXrefs(row domain.XrefRow) {
	label := strings.ToUpper(strings.ReplaceAll(row.ExpertDB, " ", "_"))
	if _, ok := keyedByExternalID[label]; ok || row.NonCodingID != "" {
		b.Xrefs.Add(XrefPair{DBName: label, DBKey: row.ExternalID})
	} else {
		b.Xrefs.Add(XrefPair{DBName: DBNameNonCoding, DBKey: row.Accession})
	}
	if row.ParentAccession != "" {
		b.Xrefs.Add(XrefPair{DBName: DBNameENA, DBKey: row.ParentAccession})
	}
}

// AddReference folds one literature reference attached to the entity.
func (b *Buffer) AddReference(ref domain.Reference) {
	b.PubIDs.Add(ref.ID)
	if ref.Authors != "" {
		b.AuthorLists.Add(ref.Authors)
	}
	addText(&b.PubTitles, ref.Title)
	if ref.Pubmed != "" {
		b.Xrefs.Add(XrefPair{DBName: DBNamePubmed, DBKey: ref.Pubmed})
	}
	if ref.DOI != "" {
		b.Xrefs.Add(XrefPair{DBName: DBNameDOI, DBKey: ref.DOI})
	}
	location := Escape(ref.Location)
	if location == "" {
		return
	}
	if strings.HasPrefix(location, "Submitted") {
		if note := submissionPrefix.ReplaceAllString(location, ""); note != "" {
			b.InsdcSubmissions.Add(note)
		}
		return
	}
	b.Journals.Add(location)
}

// SetGenomicCoordinates records whether the entity maps onto a genome.
func (b *Buffer) SetGenomicCoordinates(mapped bool) { b.HasGenomicCoordinates = mapped }

// Rows returns the number of rows folded since the last Reset.
func (b *Buffer) Rows() int { return b.rows }

// IsActive returns "Active" when at least one cross-reference is not
// deleted and "Obsolete" otherwise.
func (b *Buffer) IsActive() string {
	if b.active > 0 {
		return "Active"
	}
	return "Obsolete"
}

// FirstSeen returns the earliest creation release date.
func (b *Buffer) FirstSeen() (string, error) {
	t, ok := extreme(b.Created.items, func(a, c time.Time) bool { return a.Before(c) })
	if !ok {
		return "", ErrMissingReleaseDates
	}
	return t.Format(DateLayout), nil
}

// LastSeen returns the latest last-seen release date.
func (b *Buffer) LastSeen() (string, error) {
	t, ok := extreme(b.Last.items, func(a, c time.Time) bool { return a.After(c) })
	if !ok {
		return "", ErrMissingReleaseDates
	}
	return t.Format(DateLayout), nil
}

// DistinctSpecies returns the number of distinct species names.
func (b *Buffer) DistinctSpecies() int { return b.Species.Len() }

// PopularSpecies returns the accumulated taxon ids that belong to the
// popular organism set, in first-seen order.
func (b *Buffer) PopularSpecies() []int64 {
	var out []int64
	for _, taxid := range b.TaxIDs.items {
		if _, ok := popularSpecies[taxid]; ok {
			out = append(out, taxid)
		}
	}
	return out
}

// Relations returns the partners of one kind in first-seen order.
func (b *Buffer) Relations(kind domain.RelationshipKind) []string {
	s, ok := b.relations[kind]
	if !ok {
		return nil
	}
	return s.Values()
}

// Authors explodes every accumulated author list into individual escaped
// names, deduplicated across lists in first-seen order. Lists are kept raw
// so escaped entities never reach the split.
func (b *Buffer) Authors() []string {
	var set OrderedSet[string]
	for _, list := range b.AuthorLists.items {
		for _, name := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ';' }) {
			if name = strings.TrimSpace(name); name != "" {
				set.Add(Escape(name))
			}
		}
	}
	return set.items
}

func (b *Buffer) relationSet(kind domain.RelationshipKind) *OrderedSet[string] {
	s, ok := b.relations[kind]
	if !ok {
		s = &OrderedSet[string]{}
		b.relations[kind] = s
	}
	return s
}

func addText(s *OrderedSet[string], v string) {
	if v == "" {
		return
	}
	s.Add(Escape(v))
}

func extreme(ts []time.Time, better func(a, b time.Time) bool) (time.Time, bool) {
	if len(ts) == 0 {
		return time.Time{}, false
	}
	best := ts[0]
	for _, t := range ts[1:] {
		if better(t, best) {
			best = t
		}
	}
	return best, true
}
