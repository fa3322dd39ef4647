package relations

import "rnaindex/pkg/domain"

// KeyField names the accession column used to correlate cross-references.
type KeyField string

const (
	KeyExternalID KeyField = "external_id"
	KeyParentAC   KeyField = "parent_ac"
	KeyOptionalID KeyField = "optional_id"
)

// Value extracts the correlation key from an accession.
func (k KeyField) Value(a domain.Accession) string {
	switch k {
	case KeyExternalID:
		return a.ExternalID
	case KeyParentAC:
		return a.ParentAC
	case KeyOptionalID:
		return a.OptionalID
	default:
		return ""
	}
}

// Predicate selects cross-references by accession and cross-reference
// attributes. Zero-valued fields do not constrain the match.
type Predicate struct {
	Database    string
	FeatureName string
	NcRNAClass  string
	// ExcludeNcRNAClass requires a known class different from this one;
	// rows without a class never match.
	ExcludeNcRNAClass string
	RequireOptionalID bool
	CompositeOnly     bool
	ActiveOnly        bool
}

// Matches reports whether a cross-reference and its accession satisfy p.
func (p Predicate) Matches(x domain.CrossReference, a domain.Accession) bool {
	if p.Database != "" && a.Database != p.Database {
		return false
	}
	if p.FeatureName != "" && a.FeatureName != p.FeatureName {
		return false
	}
	if p.NcRNAClass != "" && a.NcRNAClass != p.NcRNAClass {
		return false
	}
	if p.ExcludeNcRNAClass != "" && (a.NcRNAClass == "" || a.NcRNAClass == p.ExcludeNcRNAClass) {
		return false
	}
	if p.RequireOptionalID && a.OptionalID == "" {
		return false
	}
	if p.CompositeOnly && !a.IsComposite {
		return false
	}
	if p.ActiveOnly && x.Deleted {
		return false
	}
	return true
}

// Rule describes one relationship kind as a two-stage correlation: seeds are
// selected from the page by Seed and keyed by SeedKey; partners are every
// cross-reference matching Target whose TargetKey equals a seed key.
type Rule struct {
	Kind      domain.RelationshipKind
	SeedKey   KeyField
	TargetKey KeyField
	Seed      Predicate
	Target    Predicate
	// Single keeps only the first partner in resolution order.
	Single bool
	// SortByLength orders partners by ascending sequence length.
	SortByLength bool
}

// DefaultRules returns the rule set for the seven supported kinds.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:      domain.KindMirbaseMatureProduct,
			SeedKey:   KeyExternalID,
			TargetKey: KeyExternalID,
			Seed:      Predicate{Database: domain.DatabaseMirbase, FeatureName: domain.FeaturePrecursorRNA},
			Target:    Predicate{Database: domain.DatabaseMirbase, FeatureName: domain.FeatureNcRNA},
		},
		{
			Kind:      domain.KindMirbasePrecursor,
			SeedKey:   KeyExternalID,
			TargetKey: KeyExternalID,
			Seed:      Predicate{Database: domain.DatabaseMirbase, FeatureName: domain.FeatureNcRNA},
			Target:    Predicate{Database: domain.DatabaseMirbase, FeatureName: domain.FeaturePrecursorRNA},
			Single:    true,
		},
		{
			Kind:      domain.KindRefseqMirnaMatureProduct,
			SeedKey:   KeyParentAC,
			TargetKey: KeyParentAC,
			Seed:      Predicate{Database: domain.DatabaseRefseq, FeatureName: domain.FeaturePrecursorRNA},
			Target:    Predicate{Database: domain.DatabaseRefseq, FeatureName: domain.FeatureNcRNA},
		},
		{
			Kind:      domain.KindRefseqMirnaPrecursor,
			SeedKey:   KeyParentAC,
			TargetKey: KeyParentAC,
			Seed:      Predicate{Database: domain.DatabaseRefseq, FeatureName: domain.FeatureNcRNA, NcRNAClass: domain.NcRNAClassMiRNA},
			Target:    Predicate{Database: domain.DatabaseRefseq, FeatureName: domain.FeaturePrecursorRNA},
			Single:    true,
		},
		{
			Kind:         domain.KindRefseqSpliceVariant,
			SeedKey:      KeyOptionalID,
			TargetKey:    KeyOptionalID,
			Seed:         Predicate{Database: domain.DatabaseRefseq, ExcludeNcRNAClass: domain.NcRNAClassMiRNA, RequireOptionalID: true},
			Target:       Predicate{Database: domain.DatabaseRefseq, ActiveOnly: true},
			SortByLength: true,
		},
		{
			Kind:         domain.KindEnsemblSpliceVariant,
			SeedKey:      KeyOptionalID,
			TargetKey:    KeyOptionalID,
			Seed:         Predicate{Database: domain.DatabaseEnsembl, ExcludeNcRNAClass: domain.NcRNAClassMiRNA, RequireOptionalID: true},
			Target:       Predicate{Database: domain.DatabaseEnsembl, ActiveOnly: true},
			SortByLength: true,
		},
		{
			Kind:      domain.KindTmRNAMate,
			SeedKey:   KeyOptionalID,
			TargetKey: KeyParentAC,
			Seed:      Predicate{Database: domain.DatabaseTmRNAWeb, RequireOptionalID: true},
			Target:    Predicate{CompositeOnly: true},
		},
	}
}
