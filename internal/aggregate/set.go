package aggregate

// OrderedSet is a deduplicating set that iterates in insertion order. The
// zero value is ready to use.
type OrderedSet[T comparable] struct {
	index map[T]struct{}
	items []T
}

// Add inserts v and reports whether it was not already present.
func (s *OrderedSet[T]) Add(v T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Contains reports membership.
func (s *OrderedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct members.
func (s *OrderedSet[T]) Len() int { return len(s.items) }

// Values returns a copy of the members in insertion order.
func (s *OrderedSet[T]) Values() []T {
	return append([]T(nil), s.items...)
}

// First returns the earliest inserted member.
func (s *OrderedSet[T]) First() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[0], true
}

// Reset empties the set, keeping allocated storage for reuse.
func (s *OrderedSet[T]) Reset() {
	clear(s.index)
	clear(s.items)
	s.items = s.items[:0]
}
