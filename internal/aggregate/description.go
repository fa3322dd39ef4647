package aggregate

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Description synthesizes the entity description. A single accumulated
// description is used verbatim with its first letter capitalized; otherwise
// the rna type (sole product, else sole gene, else every rna type joined by
// "/") is qualified by the species, or by the species count when the entity
// spans several organisms. The buffer is not modified.
func (b *Buffer) Description() string {
	if b.Descriptions.Len() == 1 {
		d, _ := b.Descriptions.First()
		return upperFirst(d)
	}
	rnaType := b.rnaTypeLabel()
	if b.DistinctSpecies() == 1 {
		species, _ := b.Species.First()
		return species + " " + rnaType
	}
	return rnaType + " from " + strconv.Itoa(b.DistinctSpecies()) + " species"
}

func (b *Buffer) rnaTypeLabel() string {
	if b.Products.Len() == 1 {
		p, _ := b.Products.First()
		return p
	}
	if b.Genes.Len() == 1 {
		g, _ := b.Genes.First()
		return g
	}
	return strings.Join(b.RNATypes.items, "/")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
