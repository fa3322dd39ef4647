package relations

import "rnaindex/pkg/domain"

// EdgeMap is the immutable result of a resolution pass, keyed by
// cross-reference id.
type EdgeMap struct {
	edges map[domain.XrefID]domain.Relations
}

// Partners returns a copy of the partner identifiers of one kind for id.
// Unknown ids and kinds yield an empty list.
func (m *EdgeMap) Partners(id domain.XrefID, kind domain.RelationshipKind) []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.edges[id][kind]...)
}

// Relations returns a copy of every non-empty kind resolved for id.
func (m *EdgeMap) Relations(id domain.XrefID) domain.Relations {
	if m == nil {
		return nil
	}
	rel, ok := m.edges[id]
	if !ok {
		return nil
	}
	out := make(domain.Relations, len(rel))
	for kind, partners := range rel {
		out[kind] = append([]string(nil), partners...)
	}
	return out
}

// Len returns the number of cross-references with at least one edge.
func (m *EdgeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.edges)
}

// Edges returns the total number of partner entries across all kinds.
func (m *EdgeMap) Edges() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, rel := range m.edges {
		for _, partners := range rel {
			n += len(partners)
		}
	}
	return n
}

type builder struct {
	edges map[domain.XrefID]domain.Relations
}

func newBuilder() *builder {
	return &builder{edges: make(map[domain.XrefID]domain.Relations)}
}

func (b *builder) add(id domain.XrefID, kind domain.RelationshipKind, partners []string) {
	if len(partners) == 0 {
		return
	}
	rel, ok := b.edges[id]
	if !ok {
		rel = make(domain.Relations)
		b.edges[id] = rel
	}
	if existing, ok := rel[kind]; ok && len(existing) > 0 {
		return
	}
	rel[kind] = partners
}

func (b *builder) build() *EdgeMap {
	m := &EdgeMap{edges: b.edges}
	b.edges = nil
	return m
}
