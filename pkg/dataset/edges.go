package dataset

import (
	"github.com/emirpasic/gods/maps/treemap"
)

// EdgeSet collects unordered weighted edges keyed by their canonical endpoint pair.
//
// Adding a pair that already exists overwrites its weight, so the last write wins.
// Iteration order is sorted by (A, B) regardless of insertion order.
type EdgeSet struct {
	m *treemap.Map
}

// NewEdgeSet returns an empty set.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{m: treemap.NewWithStringComparator()}
}

// Put records an edge between a and b. Self-loops are ignored and reported as false.
func (s *EdgeSet) Put(a, b string, weight float64) bool {
	if a == b {
		return false
	}
	if b < a {
		a, b = b, a
	}
	s.m.Put(edgeKey(a, b), GraphEdge{A: a, B: b, Weight: weight})
	return true
}

// Get returns the edge between a and b in either order.
func (s *EdgeSet) Get(a, b string) (GraphEdge, bool) {
	if b < a {
		a, b = b, a
	}
	v, ok := s.m.Get(edgeKey(a, b))
	if !ok {
		return GraphEdge{}, false
	}
	return v.(GraphEdge), true
}

// Len returns the number of distinct pairs.
func (s *EdgeSet) Len() int { return s.m.Size() }

// Edges returns the edges sorted by (A, B).
func (s *EdgeSet) Edges() []GraphEdge {
	out := make([]GraphEdge, 0, s.m.Size())
	it := s.m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(GraphEdge))
	}
	return out
}

// edgeKey joins the endpoints with NUL, which sorts below every printable byte,
// so keys order by A first and B second.
func edgeKey(a, b string) string { return a + "\x00" + b }
