package domain

// RelationshipKind names a resolved relationship between cross-references.
// The value doubles as the document field name used for partner identifiers.
type RelationshipKind string

const (
	// KindMirbaseMatureProduct links a miRBase precursor to its mature products.
	KindMirbaseMatureProduct RelationshipKind = "mirbase_mature_product"
	// KindMirbasePrecursor links a miRBase mature product to its precursor.
	KindMirbasePrecursor RelationshipKind = "mirbase_precursor"
	// KindRefseqMirnaMatureProduct links a RefSeq miRNA precursor to its mature products.
	KindRefseqMirnaMatureProduct RelationshipKind = "refseq_mirna_mature_product"
	// KindRefseqMirnaPrecursor links a RefSeq mature miRNA to its precursor.
	KindRefseqMirnaPrecursor RelationshipKind = "refseq_mirna_precursor"
	KindRefseqSpliceVariant  RelationshipKind = "refseq_splice_variant"
	KindEnsemblSpliceVariant RelationshipKind = "ensembl_splice_variant"
	// KindTmRNAMate links the two pieces of a two-piece tmRNA.
	KindTmRNAMate RelationshipKind = "tmrna_mate"
)

// RelationshipKinds lists every supported kind in document order.
func RelationshipKinds() []RelationshipKind {
	return []RelationshipKind{
		KindMirbaseMatureProduct,
		KindMirbasePrecursor,
		KindRefseqMirnaMatureProduct,
		KindRefseqMirnaPrecursor,
		KindRefseqSpliceVariant,
		KindEnsemblSpliceVariant,
		KindTmRNAMate,
	}
}

// Relations maps each kind to the ordered partner sequence identifiers
// resolved for one cross-reference.
type Relations map[RelationshipKind][]string
