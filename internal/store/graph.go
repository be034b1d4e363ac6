package store

import (
	"slices"

	"todomanager/internal/core"
)

// refSet is an insertion-ordered set of entity references.
type refSet struct {
	items []core.EntityRef
	index map[core.EntityRef]struct{}
}

func newRefSet() *refSet {
	return &refSet{index: make(map[core.EntityRef]struct{})}
}

func (s *refSet) add(r core.EntityRef) bool {
	if _, ok := s.index[r]; ok {
		return false
	}
	s.index[r] = struct{}{}
	s.items = append(s.items, r)
	return true
}

func (s *refSet) remove(r core.EntityRef) bool {
	if _, ok := s.index[r]; !ok {
		return false
	}
	delete(s.index, r)
	s.items = slices.DeleteFunc(s.items, func(x core.EntityRef) bool { return x == r })
	return true
}

func (s *refSet) len() int {
	return len(s.items)
}

// linkTable stores one relationship class. Every pair is recorded on both
// endpoints so traversal from either side is a single map lookup.
type linkTable struct {
	adj   map[core.EntityRef]*refSet
	pairs int
}

func newLinkTable() *linkTable {
	return &linkTable{adj: make(map[core.EntityRef]*refSet)}
}

func (t *linkTable) side(r core.EntityRef) *refSet {
	s, ok := t.adj[r]
	if !ok {
		s = newRefSet()
		t.adj[r] = s
	}
	return s
}

// link records the pair a-b. It reports false when the pair already exists.
func (t *linkTable) link(a, b core.EntityRef) bool {
	if !t.side(a).add(b) {
		return false
	}
	t.side(b).add(a)
	t.pairs++
	return true
}

// unlink removes the pair a-b. It reports false when the pair is absent.
func (t *linkTable) unlink(a, b core.EntityRef) bool {
	s, ok := t.adj[a]
	if !ok || !s.remove(b) {
		return false
	}
	if s.len() == 0 {
		delete(t.adj, a)
	}
	if o, ok := t.adj[b]; ok {
		o.remove(a)
		if o.len() == 0 {
			delete(t.adj, b)
		}
	}
	t.pairs--
	return true
}

func (t *linkTable) neighbors(a core.EntityRef) []core.EntityRef {
	s, ok := t.adj[a]
	if !ok {
		return nil
	}
	return slices.Clone(s.items)
}

// purge removes every pair touching a and returns how many were removed.
func (t *linkTable) purge(a core.EntityRef) int {
	n := 0
	for _, b := range t.neighbors(a) {
		if t.unlink(a, b) {
			n++
		}
	}
	return n
}

// graph holds the three relationship classes.
type graph struct {
	tables map[core.RelationClass]*linkTable
}

func newGraph() *graph {
	g := &graph{tables: make(map[core.RelationClass]*linkTable, len(core.Classes))}
	for _, c := range core.Classes {
		g.tables[c] = newLinkTable()
	}
	return g
}

func (g *graph) table(c core.RelationClass) *linkTable {
	return g.tables[c]
}

// purge cascades the removal of ref through every class its kind takes part in.
func (g *graph) purge(ref core.EntityRef) int {
	n := 0
	for _, c := range core.Classes {
		if c.Participates(ref.Kind) {
			n += g.tables[c].purge(ref)
		}
	}
	return n
}
