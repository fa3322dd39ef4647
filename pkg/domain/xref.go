// Package domain defines the cross-reference, accession, and sequence entity
// records read from the relational store, and the relationship kinds resolved
// between them.
package domain

import "time"

// XrefID identifies one cross-reference row.
type XrefID int64

// Source database names as stored on accession records.
const (
	DatabaseMirbase  = "MIRBASE"
	DatabaseRefseq   = "REFSEQ"
	DatabaseEnsembl  = "ENSEMBL"
	DatabaseTmRNAWeb = "TMRNA_WEB"
	DatabaseRfam     = "RFAM"
	DatabaseRDP      = "RDP"
)

// Feature kinds carried by accessions.
const (
	FeaturePrecursorRNA = "precursor_RNA"
	FeatureNcRNA        = "ncRNA"
)

// NcRNAClassMiRNA is the ncRNA class of mature and precursor microRNAs.
const NcRNAClassMiRNA = "miRNA"

// CrossReference identifies one (accession, database, release window) tuple.
// Deletion is a soft flag; rows are never removed.
type CrossReference struct {
	ID         XrefID
	Accession  string
	DatabaseID int
	UPI        string
	Deleted    bool
	TaxID      int64
	Created    time.Time
	Last       time.Time
}

// Accession describes one source-database record. Many cross-references may
// point at accessions sharing a parent accession or external id.
type Accession struct {
	Accession   string
	ParentAC    string
	SeqVersion  int
	Database    string
	ExternalID  string
	OptionalID  string
	FeatureName string
	NcRNAClass  string
	IsComposite bool
	NonCodingID string
	Description string
	Species     string
	Organelle   string
	Gene        string
	GeneSynonym string
	Product     string
	Function    string
	CommonName  string
	Note        string
	DBXref      string
}

// ParentAccession returns the versioned parent accession, e.g. "AB000001.1".
func (a Accession) ParentAccession() string {
	return VersionedAccession(a.ParentAC, a.SeqVersion)
}
