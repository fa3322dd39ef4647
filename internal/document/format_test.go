package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"rnaindex/internal/aggregate"
	"rnaindex/pkg/domain"
)

type parsedEntry struct {
	XMLName     xml.Name `xml:"entry"`
	ID          string   `xml:"id,attr"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Dates       []struct {
		Value string `xml:"value,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"dates>date"`
	Refs []struct {
		DBName string `xml:"dbname,attr"`
		DBKey  string `xml:"dbkey,attr"`
	} `xml:"cross_references>ref"`
	Fields []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"additional_fields>field"`
}

func sampleBuffer() *aggregate.Buffer {
	b := aggregate.NewBuffer()
	b.Reset(domain.SequenceEntity{UPI: "URS0000000001", MD5: "6bba097c8c39ed9a0fdf02273ee1c79a", Length: 73})
	b.AddRow(domain.XrefRow{
		XrefID: 1, TaxID: 9606, Species: "Homo sapiens", ExpertDB: "ENA",
		Description: "tRNA <Phe> & friends", Accession: "HG497133.1:1..73:tRNA", ParentAccession: "HG497133.1",
		FeatureName: "tRNA", Gene: "TRF-GAA",
		Created: time.Date(2014, 3, 4, 0, 0, 0, 0, time.UTC), Last: time.Date(2020, 5, 11, 0, 0, 0, 0, time.UTC),
	}, domain.Relations{domain.KindMirbasePrecursor: {"URS0000000002"}})
	b.AddReference(domain.Reference{ID: 5, Authors: "Smith J., Doe A.", Title: "tRNA", Location: "Nature 1:2(2001).", Pubmed: "42"})
	b.SetGenomicCoordinates(true)
	return b
}

func TestFormatIsCompactAndWellFormed(t *testing.T) {
	out, err := Format(sampleBuffer())
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	for i, line := range strings.Split(strings.TrimSuffix(string(out), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			t.Fatalf("line %d is empty", i+1)
		}
		if line != strings.TrimLeft(line, " \t") {
			t.Fatalf("line %d is indented: %q", i+1, line)
		}
	}
	if n := bytes.Count(out, []byte("<entry ")); n != 1 {
		t.Fatalf("expected exactly one entry, got %d", n)
	}
	var e parsedEntry
	if err := xml.Unmarshal(out, &e); err != nil {
		t.Fatalf("not well-formed: %v\n%s", err, out)
	}
	if e.ID != "URS0000000001" || e.Name != "Unique RNA Sequence URS0000000001" {
		t.Fatalf("unexpected identity %+v", e)
	}
	if e.Description != "TRNA <Phe> & friends" {
		t.Fatalf("unexpected description %q", e.Description)
	}
	if len(e.Dates) != 2 || e.Dates[0].Value != "04 Mar 2014" || e.Dates[1].Type != "last_seen" {
		t.Fatalf("unexpected dates %+v", e.Dates)
	}
}

func TestFormatFieldsAndRefs(t *testing.T) {
	out, err := Format(sampleBuffer())
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var e parsedEntry
	if err := xml.Unmarshal(out, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := map[string][]string{}
	var order []string
	for _, f := range e.Fields {
		if _, ok := got[f.Name]; !ok {
			order = append(order, f.Name)
		}
		got[f.Name] = append(got[f.Name], f.Value)
	}
	wantOrder := []string{"active", "length", "species", "expert_db", "gene", "rna_type",
		"has_genomic_coordinates", "md5", "author", "journal", "pub_title", "pub_id", "popular_species", "mirbase_precursor"}
	if strings.Join(order, ",") != strings.Join(wantOrder, ",") {
		t.Fatalf("unexpected field order %v", order)
	}
	if strings.Join(got["author"], "|") != "Smith J.|Doe A." {
		t.Fatalf("unexpected authors %v", got["author"])
	}
	if got["active"][0] != "Active" || got["has_genomic_coordinates"][0] != "True" || got["popular_species"][0] != "9606" {
		t.Fatalf("unexpected scalar fields %v", got)
	}
	refs := map[string]string{}
	for _, r := range e.Refs {
		refs[r.DBName] = r.DBKey
	}
	for name, key := range map[string]string{
		"NON-CODING": "HG497133.1:1..73:tRNA", "ENA": "HG497133.1", "PUBMED": "42", "ncbi_taxonomy_id": "9606",
	} {
		if refs[name] != key {
			t.Fatalf("expected ref %s=%s, got %v", name, key, refs)
		}
	}
}

func TestFormatEscapesBodyText(t *testing.T) {
	out, err := Format(sampleBuffer())
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !bytes.Contains(out, []byte("<description>TRNA &lt;Phe&gt; &amp; friends</description>")) {
		t.Fatalf("description not escaped:\n%s", out)
	}
}

func TestFormatRequiresReleaseDates(t *testing.T) {
	b := aggregate.NewBuffer()
	b.Reset(domain.SequenceEntity{UPI: "URS1"})
	if _, err := Format(b); !errors.Is(err, aggregate.ErrNoCrossReferences) {
		t.Fatalf("expected no cross-references error, got %v", err)
	}
	b.AddRow(domain.XrefRow{XrefID: 1, Species: "x"}, nil)
	if _, err := Format(b); !errors.Is(err, aggregate.ErrMissingReleaseDates) {
		t.Fatalf("expected missing release dates, got %v", err)
	}
}

func TestCompact(t *testing.T) {
	in := []byte("\n  <a>\n   \n\t<b/>\n  </a>\n")
	if got := string(Compact(in)); got != "<a>\n<b/>\n</a>\n" {
		t.Fatalf("unexpected compact output %q", got)
	}
}

func TestWriteDump(t *testing.T) {
	entry, err := Format(sampleBuffer())
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDump(&buf, "24", [][]byte{entry, entry}); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	var dump struct {
		XMLName    xml.Name      `xml:"database"`
		Name       string        `xml:"name"`
		Release    string        `xml:"release"`
		EntryCount int           `xml:"entry_count"`
		Entries    []parsedEntry `xml:"entries>entry"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &dump); err != nil {
		t.Fatalf("unmarshal dump: %v", err)
	}
	if dump.Name != DatabaseName || dump.Release != "24" || dump.EntryCount != 2 || len(dump.Entries) != 2 {
		t.Fatalf("unexpected dump %+v", dump)
	}
}
