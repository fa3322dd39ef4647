package aggregate

import (
	"context"
	"fmt"

	"rnaindex/pkg/domain"
)

// Source is the per-entity slice of the relational store read while
// building a buffer.
type Source interface {
	Rows(ctx context.Context, upi string) ([]domain.XrefRow, error)
	References(ctx context.Context, upi string) ([]domain.Reference, error)
	HasGenomicCoordinates(ctx context.Context, upi string) (bool, error)
}

// EdgeLookup returns the precomputed relationships of a cross-reference.
type EdgeLookup interface {
	Relations(id domain.XrefID) domain.Relations
}

// Load resets b for entity and folds every row, reference and the genome
// mapping flag read from src. Relationship partners come from edges, which
// must already cover the entity's cross-references; a nil lookup skips them.
func (b *Buffer) Load(ctx context.Context, src Source, entity domain.SequenceEntity, edges EdgeLookup) error {
	b.Reset(entity)
	rows, err := src.Rows(ctx, entity.UPI)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	if len(rows) == 0 {
		return ErrNoCrossReferences
	}
	for _, row := range rows {
		var rel domain.Relations
		if edges != nil {
			rel = edges.Relations(row.XrefID)
		}
		b.AddRow(row, rel)
	}
	refs, err := src.References(ctx, entity.UPI)
	if err != nil {
		return fmt.Errorf("load references: %w", err)
	}
	for _, ref := range refs {
		b.AddReference(ref)
	}
	mapped, err := src.HasGenomicCoordinates(ctx, entity.UPI)
	if err != nil {
		return fmt.Errorf("load coordinates: %w", err)
	}
	b.SetGenomicCoordinates(mapped)
	return nil
}
