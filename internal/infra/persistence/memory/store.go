// Package memory provides an in-memory implementation of the cross-reference
// store used for tests and ephemeral environments. Query semantics mirror the
// shared SQL implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rnaindex/internal/relations"
	"rnaindex/internal/store"
	"rnaindex/pkg/domain"
)

// Compile-time contract assertion.
var _ store.Store = (*Store)(nil)

// Store keeps the exporter's tables in maps guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	databases   map[int]string
	entities    map[string]domain.SequenceEntity
	accessions  map[string]domain.Accession
	xrefs       map[domain.XrefID]domain.CrossReference
	references  map[string][]domain.Reference
	coordinates map[string][]string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		databases:   make(map[int]string),
		entities:    make(map[string]domain.SequenceEntity),
		accessions:  make(map[string]domain.Accession),
		xrefs:       make(map[domain.XrefID]domain.CrossReference),
		references:  make(map[string][]domain.Reference),
		coordinates: make(map[string][]string),
	}
}

// AddDatabase registers a source database display name.
func (s *Store) AddDatabase(id int, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.databases[id] = displayName
}

// AddEntity inserts or replaces a sequence entity.
func (s *Store) AddEntity(e domain.SequenceEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.UPI] = e
}

// AddAccession inserts or replaces an accession record.
func (s *Store) AddAccession(a domain.Accession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessions[a.Accession] = a
}

// AddXref inserts a cross-reference. The referenced entity, accession and
// database must already exist.
func (s *Store) AddXref(x domain.CrossReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.xrefs[x.ID]; ok {
		return fmt.Errorf("xref %d already exists", x.ID)
	}
	if _, ok := s.entities[x.UPI]; !ok {
		return fmt.Errorf("xref %d: unknown entity %s", x.ID, x.UPI)
	}
	if _, ok := s.accessions[x.Accession]; !ok {
		return fmt.Errorf("xref %d: unknown accession %s", x.ID, x.Accession)
	}
	if _, ok := s.databases[x.DatabaseID]; !ok {
		return fmt.Errorf("xref %d: unknown database %d", x.ID, x.DatabaseID)
	}
	s.xrefs[x.ID] = x
	return nil
}

// AddReference attaches a literature reference to an accession.
func (s *Store) AddReference(accession string, ref domain.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references[accession] = append(s.references[accession], ref)
}

// AddCoordinates records a genome mapping of an accession.
func (s *Store) AddCoordinates(accession, chromosome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coordinates[accession] = append(s.coordinates[accession], chromosome)
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Entities implements store.Store.
func (s *Store) Entities(_ context.Context, after string, limit int) ([]domain.SequenceEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := make(map[string]struct{}, len(s.entities))
	for _, x := range s.xrefs {
		owned[x.UPI] = struct{}{}
	}
	out := make([]domain.SequenceEntity, 0, len(owned))
	for upi := range owned {
		if upi > after {
			out = append(out, s.entities[upi])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UPI < out[j].UPI })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// XrefIDs implements store.Store.
func (s *Store) XrefIDs(_ context.Context, upis []string, taxid int64) ([]domain.XrefID, error) {
	if len(upis) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(upis))
	for _, upi := range upis {
		want[upi] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.XrefID
	for id, x := range s.xrefs {
		if _, ok := want[x.UPI]; !ok {
			continue
		}
		if taxid != 0 && x.TaxID != taxid {
			continue
		}
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

// Rows implements store.Store.
func (s *Store) Rows(_ context.Context, upi string) ([]domain.XrefRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity := s.entities[upi]
	var out []domain.XrefRow
	for _, id := range s.sortedXrefIDs() {
		x := s.xrefs[id]
		if x.UPI != upi {
			continue
		}
		a := s.accessions[x.Accession]
		out = append(out, domain.XrefRow{
			XrefID:          x.ID,
			TaxID:           x.TaxID,
			Deleted:         x.Deleted,
			Species:         a.Species,
			Organelle:       a.Organelle,
			ExternalID:      a.ExternalID,
			Description:     a.Description,
			NonCodingID:     a.NonCodingID,
			Accession:       a.Accession,
			Function:        a.Function,
			Gene:            a.Gene,
			GeneSynonym:     a.GeneSynonym,
			FeatureName:     a.FeatureName,
			NcRNAClass:      a.NcRNAClass,
			Product:         a.Product,
			CommonName:      a.CommonName,
			ParentAccession: a.ParentAccession(),
			ExpertDB:        s.databases[x.DatabaseID],
			Created:         x.Created,
			Last:            x.Last,
			Length:          entity.Length,
		})
	}
	return out, nil
}

// References implements store.Store.
func (s *Store) References(_ context.Context, upi string) ([]domain.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int64]struct{})
	var out []domain.Reference
	for _, x := range s.xrefs {
		if x.UPI != upi {
			continue
		}
		for _, ref := range s.references[x.Accession] {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// HasGenomicCoordinates implements store.Store.
func (s *Store) HasGenomicCoordinates(_ context.Context, upi string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, x := range s.xrefs {
		if x.UPI != upi {
			continue
		}
		for _, chrom := range s.coordinates[x.Accession] {
			if chrom != "" {
				return true, nil
			}
		}
	}
	return false, nil
}

// Seeds implements relations.Source.
func (s *Store) Seeds(_ context.Context, rule relations.Rule, page []domain.XrefID, taxid int64) ([]relations.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]domain.XrefID(nil), page...)
	sortIDs(ids)
	var out []relations.Seed
	var last domain.XrefID
	for i, id := range ids {
		if i > 0 && id == last {
			continue
		}
		last = id
		x, ok := s.xrefs[id]
		if !ok || (taxid != 0 && x.TaxID != taxid) {
			continue
		}
		a := s.accessions[x.Accession]
		key := rule.SeedKey.Value(a)
		if key == "" || !rule.Seed.Matches(x, a) {
			continue
		}
		out = append(out, relations.Seed{XrefID: id, Accession: a.Accession, Key: key})
	}
	return out, nil
}

// Candidates implements relations.Source.
func (s *Store) Candidates(_ context.Context, rule relations.Rule, keys []string, taxid int64) ([]relations.Candidate, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []relations.Candidate
	for _, x := range s.xrefs {
		if taxid != 0 && x.TaxID != taxid {
			continue
		}
		a := s.accessions[x.Accession]
		key := rule.TargetKey.Value(a)
		if _, ok := want[key]; !ok || !rule.Target.Matches(x, a) {
			continue
		}
		out = append(out, relations.Candidate{
			XrefID:    x.ID,
			Accession: a.Accession,
			Key:       key,
			UPI:       x.UPI,
			Length:    s.entities[x.UPI].Length,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accession != out[j].Accession {
			return out[i].Accession < out[j].Accession
		}
		return out[i].XrefID < out[j].XrefID
	})
	return out, nil
}

func (s *Store) sortedXrefIDs() []domain.XrefID {
	ids := make([]domain.XrefID, 0, len(s.xrefs))
	for id := range s.xrefs {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []domain.XrefID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
