// Package document renders aggregated sequence entities into the EBeye
// search dump format: one <entry> per entity, wrapped into a database
// envelope per output chunk.
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"rnaindex/internal/aggregate"
	"rnaindex/pkg/domain"
)

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Format renders one entity. The output carries no blank lines and no
// leading indentation. It fails when the buffer lacks release dates.
func Format(b *aggregate.Buffer) ([]byte, error) {
	if b.Rows() == 0 {
		return nil, aggregate.ErrNoCrossReferences
	}
	firstSeen, err := b.FirstSeen()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", b.UPI, err)
	}
	lastSeen, err := b.LastSeen()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", b.UPI, err)
	}

	var w bytes.Buffer
	id := attrEscaper.Replace(b.UPI)
	fmt.Fprintf(&w, "<entry id=\"%s\">\n", id)
	fmt.Fprintf(&w, "  <name>Unique RNA Sequence %s</name>\n", aggregate.Escape(b.UPI))
	fmt.Fprintf(&w, "  <description>%s</description>\n", b.Description())
	w.WriteString("  <dates>\n")
	fmt.Fprintf(&w, "    <date value=\"%s\" type=\"first_seen\" />\n", firstSeen)
	fmt.Fprintf(&w, "    <date value=\"%s\" type=\"last_seen\" />\n", lastSeen)
	w.WriteString("  </dates>\n")

	w.WriteString("  <cross_references>\n")
	for _, x := range b.Xrefs.Values() {
		fmt.Fprintf(&w, "    <ref dbname=\"%s\" dbkey=\"%s\" />\n", attrEscaper.Replace(x.DBName), attrEscaper.Replace(x.DBKey))
	}
	for _, taxid := range b.TaxIDs.Values() {
		fmt.Fprintf(&w, "    <ref dbname=\"%s\" dbkey=\"%d\" />\n", aggregate.DBNameTaxonomy, taxid)
	}
	w.WriteString("  </cross_references>\n")

	w.WriteString("  <additional_fields>\n")
	field(&w, "active", b.IsActive())
	field(&w, "length", strconv.Itoa(b.Length))
	fields(&w, "species", b.Species.Values())
	fields(&w, "organelle", b.Organelles.Values())
	fields(&w, "expert_db", b.ExpertDBs.Values())
	fields(&w, "common_name", b.CommonNames.Values())
	fields(&w, "function", b.Functions.Values())
	fields(&w, "gene", b.Genes.Values())
	fields(&w, "gene_synonym", b.GeneSynonyms.Values())
	fields(&w, "rna_type", b.RNATypes.Values())
	fields(&w, "product", b.Products.Values())
	field(&w, "has_genomic_coordinates", titleBool(b.HasGenomicCoordinates))
	field(&w, "md5", b.MD5)
	fields(&w, "author", b.Authors())
	fields(&w, "journal", b.Journals.Values())
	fields(&w, "insdc_submission", b.InsdcSubmissions.Values())
	fields(&w, "pub_title", b.PubTitles.Values())
	fields(&w, "pub_id", int64s(b.PubIDs.Values()))
	fields(&w, "popular_species", int64s(b.PopularSpecies()))
	for _, kind := range domain.RelationshipKinds() {
		fields(&w, string(kind), b.Relations(kind))
	}
	w.WriteString("  </additional_fields>\n")
	w.WriteString("</entry>\n")
	return Compact(w.Bytes()), nil
}

// Compact drops whitespace-only lines and strips leading whitespace from
// every remaining line.
func Compact(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for _, line := range bytes.Split(src, []byte{'\n'}) {
		line = bytes.TrimLeft(line, " \t\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

func field(w *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "    <field name=\"%s\">%s</field>\n", name, value)
}

func fields(w *bytes.Buffer, name string, values []string) {
	for _, v := range values {
		field(w, name, v)
	}
}

func int64s(vs []int64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

func titleBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
