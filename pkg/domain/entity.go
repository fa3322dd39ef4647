package domain

import (
	"strconv"
	"time"
)

// SequenceEntity is the canonical unique sequence targeted by one or more
// cross-references.
type SequenceEntity struct {
	UPI    string
	MD5    string
	Length int
}

// XrefRow is one joined cross-reference row for a sequence entity, combining
// the cross-reference, its accession, source database, release window, and
// sequence length.
type XrefRow struct {
	XrefID          XrefID
	TaxID           int64
	Deleted         bool
	Species         string
	Organelle       string
	ExternalID      string
	Description     string
	NonCodingID     string
	Accession       string
	Function        string
	Gene            string
	GeneSynonym     string
	FeatureName     string
	NcRNAClass      string
	Product         string
	CommonName      string
	ParentAccession string
	ExpertDB        string
	Created         time.Time
	Last            time.Time
	Length          int
}

// Reference is a literature citation attached to an accession.
type Reference struct {
	ID       int64
	Authors  string
	Title    string
	Location string
	Pubmed   string
	DOI      string
}

// VersionedAccession joins an accession and its sequence version with a dot.
func VersionedAccession(accession string, version int) string {
	if accession == "" {
		return ""
	}
	return accession + "." + strconv.Itoa(version)
}
