// Package relations resolves relationship edges between cross-references
// (precursor/mature miRNA pairs, splice variants, tmRNA mates) with bulk,
// set-oriented two-stage self-joins over a page of cross-reference ids.
package relations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rnaindex/pkg/domain"
)

// Seed is a page cross-reference selected by a rule's seed predicate.
type Seed struct {
	XrefID    domain.XrefID
	Accession string
	Key       string
}

// Candidate is a cross-reference selected by a rule's target predicate whose
// correlation key matched one of the requested seed keys.
type Candidate struct {
	XrefID    domain.XrefID
	Accession string
	Key       string
	UPI       string
	Length    int
}

// Source runs the two correlation stages against the relational store. A
// zero taxid disables the taxon filter.
type Source interface {
	Seeds(ctx context.Context, rule Rule, page []domain.XrefID, taxid int64) ([]Seed, error)
	Candidates(ctx context.Context, rule Rule, keys []string, taxid int64) ([]Candidate, error)
}

// Observer receives the duration and outcome of each rule evaluation.
type Observer func(kind domain.RelationshipKind, duration time.Duration, err error)

// Resolver computes an EdgeMap for pages of cross-references.
type Resolver struct {
	source   Source
	rules    []Rule
	observer Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules replaces the default rule set.
func WithRules(rules []Rule) Option {
	return func(r *Resolver) { r.rules = append([]Rule(nil), rules...) }
}

// WithObserver installs a per-rule observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver constructs a resolver over source using DefaultRules unless
// overridden.
func NewResolver(source Source, opts ...Option) *Resolver {
	r := &Resolver{source: source, rules: DefaultRules()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the edges of every rule for one page. An empty page
// yields an empty map.
func (r *Resolver) Resolve(ctx context.Context, page []domain.XrefID, taxid int64) (*EdgeMap, error) {
	b := newBuilder()
	if err := r.resolveInto(ctx, b, page, taxid); err != nil {
		return nil, err
	}
	return b.build(), nil
}

// ResolveBatched splits ids into pages of at most pageSize and merges the
// per-page results into one map.
func (r *Resolver) ResolveBatched(ctx context.Context, ids []domain.XrefID, pageSize int, taxid int64) (*EdgeMap, error) {
	if pageSize <= 0 {
		pageSize = len(ids)
	}
	b := newBuilder()
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := r.resolveInto(ctx, b, ids[start:end], taxid); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

func (r *Resolver) resolveInto(ctx context.Context, b *builder, page []domain.XrefID, taxid int64) error {
	if len(page) == 0 {
		return nil
	}
	for _, rule := range r.rules {
		started := time.Now()
		err := r.apply(ctx, b, rule, page, taxid)
		if r.observer != nil {
			r.observer(rule.Kind, time.Since(started), err)
		}
		if err != nil {
			return fmt.Errorf("resolve %s: %w", rule.Kind, err)
		}
	}
	return nil
}

func (r *Resolver) apply(ctx context.Context, b *builder, rule Rule, page []domain.XrefID, taxid int64) error {
	seeds, err := r.source.Seeds(ctx, rule, page, taxid)
	if err != nil {
		return fmt.Errorf("seed stage: %w", err)
	}
	if len(seeds) == 0 {
		return nil
	}
	keys := seedKeys(seeds)
	candidates, err := r.source.Candidates(ctx, rule, keys, taxid)
	if err != nil {
		return fmt.Errorf("join stage: %w", err)
	}
	sortCandidates(candidates, rule.SortByLength)

	byKey := make(map[string][]Candidate, len(keys))
	for _, c := range candidates {
		byKey[c.Key] = append(byKey[c.Key], c)
	}
	for _, seed := range seeds {
		var partners []string
		seen := make(map[string]struct{})
		for _, c := range byKey[seed.Key] {
			if c.XrefID == seed.XrefID || c.Accession == seed.Accession {
				continue
			}
			if _, dup := seen[c.UPI]; dup {
				continue
			}
			seen[c.UPI] = struct{}{}
			partners = append(partners, c.UPI)
			if rule.Single {
				break
			}
		}
		b.add(seed.XrefID, rule.Kind, partners)
	}
	return nil
}

func seedKeys(seeds []Seed) []string {
	seen := make(map[string]struct{}, len(seeds))
	keys := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if s.Key == "" {
			continue
		}
		if _, ok := seen[s.Key]; ok {
			continue
		}
		seen[s.Key] = struct{}{}
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return keys
}

// sortCandidates puts candidates in resolution order: ascending length when
// requested, then lowest accession, then lowest cross-reference id.
func sortCandidates(cs []Candidate, byLength bool) {
	sort.SliceStable(cs, func(i, j int) bool {
		if byLength && cs[i].Length != cs[j].Length {
			return cs[i].Length < cs[j].Length
		}
		if cs[i].Accession != cs[j].Accession {
			return cs[i].Accession < cs[j].Accession
		}
		return cs[i].XrefID < cs[j].XrefID
	})
}
