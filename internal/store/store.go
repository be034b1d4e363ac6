// Package store holds the in-memory entity tables and the relationship graph
// linking them. A single Store is safe for concurrent use.
package store

import (
	"slices"
	"strconv"
	"sync"

	"todomanager/internal/core"
)

// Op names a mutating store operation.
type Op string

const (
	OpCreate  Op = "create"
	OpReplace Op = "replace"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpLink    Op = "link"
	OpUnlink  Op = "unlink"
)

// Stats is a point-in-time count of entities and link pairs.
type Stats struct {
	Entities map[core.Kind]int
	Links    map[core.RelationClass]int
}

// Observer is notified after every successful mutation, outside the lock.
type Observer interface {
	StoreChanged(op Op, kind core.Kind, stats Stats)
}

// Options configures a Store.
type Options struct {
	// LenientCategoryRelations makes relationship listings under an unknown
	// category answer an empty collection rather than NotFound.
	LenientCategoryRelations bool
	Observer                 Observer
}

type table struct {
	lastID int
	order  []string
	rows   map[string]map[string]string
}

func newTable() *table {
	return &table{rows: make(map[string]map[string]string)}
}

func (t *table) insert(fields map[string]string) string {
	t.lastID++
	id := strconv.Itoa(t.lastID)
	t.rows[id] = fields
	t.order = append(t.order, id)
	return id
}

func (t *table) remove(id string) {
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(x string) bool { return x == id })
}

// Store is the entity store. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	tables map[core.Kind]*table
	links  *graph
	opts   Options
}

// New creates an empty store.
func New(opts Options) *Store {
	s := &Store{
		tables: make(map[core.Kind]*table, len(core.Kinds)),
		links:  newGraph(),
		opts:   opts,
	}
	for _, k := range core.Kinds {
		s.tables[k] = newTable()
	}
	return s
}

// List returns every entity of kind in insertion order. When filter is
// non-empty only entities whose fields equal every filter value are kept;
// a filter on a field the kind does not define matches nothing.
func (s *Store) List(kind core.Kind, filter map[string]string) []core.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.tables[kind]
	out := make([]core.Entity, 0, len(t.order))
	for _, id := range t.order {
		e := s.snapshot(kind, id)
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e core.Entity, filter map[string]string) bool {
	for name, want := range filter {
		if name == "id" {
			if e.ID != want {
				return false
			}
			continue
		}
		if _, ok := core.LookupField(e.Kind, name); !ok {
			return false
		}
		if e.Get(name) != want {
			return false
		}
	}
	return true
}

// Get returns one entity.
func (s *Store) Get(kind core.Kind, id string) (*core.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists(kind, id) {
		return nil, core.ErrInstanceNotFound(kind, id)
	}
	e := s.snapshot(kind, id)
	return &e, nil
}

// Create validates fields and stores a new entity with a fresh id.
func (s *Store) Create(kind core.Kind, fields map[string]string) (*core.Entity, error) {
	var out core.Entity
	err := s.mutate(OpCreate, kind, func() error {
		if _, ok := fields["id"]; ok {
			return core.NewValidationError(nil, core.MsgCreateWithID)
		}
		row, err := normalize(kind, fields, modeCreate)
		if err != nil {
			return err
		}
		id := s.tables[kind].insert(row)
		out = s.snapshot(kind, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Replace overwrites every mutable field of an existing entity. Fields not
// supplied are reset to their defaults.
func (s *Store) Replace(kind core.Kind, id string, fields map[string]string) (*core.Entity, error) {
	var out core.Entity
	err := s.mutate(OpReplace, kind, func() error {
		if !s.exists(kind, id) {
			return core.ErrNoSuchEntity(kind, id)
		}
		row, err := normalize(kind, fields, modeReplace)
		if err != nil {
			return err
		}
		s.tables[kind].rows[id] = row
		out = s.snapshot(kind, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes only the supplied fields of an existing entity.
func (s *Store) Update(kind core.Kind, id string, fields map[string]string) (*core.Entity, error) {
	var out core.Entity
	err := s.mutate(OpUpdate, kind, func() error {
		if !s.exists(kind, id) {
			return core.ErrNoSuchEntity(kind, id)
		}
		changes, err := normalize(kind, fields, modeUpdate)
		if err != nil {
			return err
		}
		row := s.tables[kind].rows[id]
		for k, v := range changes {
			row[k] = v
		}
		out = s.snapshot(kind, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an entity and every link touching it.
func (s *Store) Delete(kind core.Kind, id string) error {
	return s.mutate(OpDelete, kind, func() error {
		if !s.exists(kind, id) {
			return core.ErrNoInstances(kind.Collection(), id)
		}
		s.tables[kind].remove(id)
		s.links.purge(core.EntityRef{Kind: kind, ID: id})
		return nil
	})
}

// Link relates parentID to targetID through rel and returns the target.
// Linking an already linked pair succeeds without change.
func (s *Store) Link(rel core.Relation, parentID, targetID string) (*core.Entity, error) {
	var out core.Entity
	err := s.mutate(OpLink, rel.From, func() error {
		if !s.exists(rel.From, parentID) {
			return core.ErrParentNotFound(parentID)
		}
		if !s.exists(rel.To, targetID) {
			return core.ErrThingNotFound()
		}
		s.links.table(rel.Class).link(
			core.EntityRef{Kind: rel.From, ID: parentID},
			core.EntityRef{Kind: rel.To, ID: targetID},
		)
		out = s.snapshot(rel.To, targetID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkNew creates a target entity from fields and links it to parentID in
// one step. Nothing is created when the parent is missing.
func (s *Store) LinkNew(rel core.Relation, parentID string, fields map[string]string) (*core.Entity, error) {
	var out core.Entity
	err := s.mutate(OpLink, rel.From, func() error {
		if !s.exists(rel.From, parentID) {
			return core.ErrParentNotFound(parentID)
		}
		row, err := normalize(rel.To, fields, modeCreate)
		if err != nil {
			return err
		}
		id := s.tables[rel.To].insert(row)
		s.links.table(rel.Class).link(
			core.EntityRef{Kind: rel.From, ID: parentID},
			core.EntityRef{Kind: rel.To, ID: id},
		)
		out = s.snapshot(rel.To, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Unlink removes the pair parentID-targetID from rel.
func (s *Store) Unlink(rel core.Relation, parentID, targetID string) error {
	return s.mutate(OpUnlink, rel.From, func() error {
		ok := s.links.table(rel.Class).unlink(
			core.EntityRef{Kind: rel.From, ID: parentID},
			core.EntityRef{Kind: rel.To, ID: targetID},
		)
		if !ok {
			return core.ErrNoInstances(rel.From.Collection(), parentID, rel.Name, targetID)
		}
		return nil
	})
}

// Linked returns the entities related to parentID through rel, in the order
// the links were made.
func (s *Store) Linked(rel core.Relation, parentID string) ([]core.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists(rel.From, parentID) {
		if s.opts.LenientCategoryRelations && rel.From == core.KindCategory {
			return []core.Entity{}, nil
		}
		return nil, core.ErrInstanceNotFound(rel.From, parentID)
	}
	refs := s.links.table(rel.Class).neighbors(core.EntityRef{Kind: rel.From, ID: parentID})
	out := make([]core.Entity, 0, len(refs))
	for _, r := range refs {
		out = append(out, s.snapshot(r.Kind, r.ID))
	}
	return out, nil
}

// Stats counts entities per kind and link pairs per class.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() Stats {
	st := Stats{
		Entities: make(map[core.Kind]int, len(s.tables)),
		Links:    make(map[core.RelationClass]int, len(core.Classes)),
	}
	for k, t := range s.tables {
		st.Entities[k] = len(t.rows)
	}
	for _, c := range core.Classes {
		st.Links[c] = s.links.table(c).pairs
	}
	return st
}

// mutate runs fn under the write lock and notifies the observer on success.
// fn must leave the store untouched when it returns an error.
func (s *Store) mutate(op Op, kind core.Kind, fn func() error) error {
	s.mu.Lock()
	err := fn()
	var st Stats
	if err == nil && s.opts.Observer != nil {
		st = s.statsLocked()
	}
	s.mu.Unlock()

	if err == nil && s.opts.Observer != nil {
		s.opts.Observer.StoreChanged(op, kind, st)
	}
	return err
}

func (s *Store) exists(kind core.Kind, id string) bool {
	t, ok := s.tables[kind]
	if !ok {
		return false
	}
	_, ok = t.rows[id]
	return ok
}

// snapshot copies a stored row and attaches its outbound link ids.
// Callers hold at least the read lock.
func (s *Store) snapshot(kind core.Kind, id string) core.Entity {
	row := s.tables[kind].rows[id]
	fields := make(map[string]string, len(row))
	for k, v := range row {
		fields[k] = v
	}
	e := core.Entity{Kind: kind, ID: id, Fields: fields}

	ref := core.EntityRef{Kind: kind, ID: id}
	for _, rel := range core.RelationsFrom(kind) {
		refs := s.links.table(rel.Class).neighbors(ref)
		if len(refs) == 0 {
			continue
		}
		if e.Links == nil {
			e.Links = make(map[string][]string)
		}
		ids := make([]string, len(refs))
		for i, r := range refs {
			ids[i] = r.ID
		}
		e.Links[rel.Name] = ids
	}
	return e
}
