package store

import (
	"fmt"

	"todomanager/internal/core"
)

type fixture struct {
	kind   core.Kind
	fields map[string]string
}

var fixtures = []fixture{
	{core.KindTodo, map[string]string{"title": "scan paperwork"}},
	{core.KindTodo, map[string]string{"title": "file paperwork"}},
	{core.KindProject, map[string]string{"title": "Office Work"}},
	{core.KindCategory, map[string]string{"title": "Office"}},
	{core.KindCategory, map[string]string{"title": "Home"}},
}

var fixtureLinks = []struct {
	from     core.Kind
	relation string
	parent   string
	target   string
}{
	{core.KindProject, "tasks", "1", "1"},
	{core.KindProject, "tasks", "1", "2"},
	{core.KindTodo, "categories", "1", "1"},
}

// Seed loads the default fixture data into an empty store.
func (s *Store) Seed() error {
	for _, f := range fixtures {
		if _, err := s.Create(f.kind, f.fields); err != nil {
			return fmt.Errorf("seed %s %q: %w", f.kind, f.fields["title"], err)
		}
	}
	for _, l := range fixtureLinks {
		rel, ok := core.LookupRelation(l.from, l.relation)
		if !ok {
			return fmt.Errorf("seed: unknown relation %s/%s", l.from.Collection(), l.relation)
		}
		if _, err := s.Link(rel, l.parent, l.target); err != nil {
			return fmt.Errorf("seed link %s/%s/%s/%s: %w", l.from.Collection(), l.parent, l.relation, l.target, err)
		}
	}
	return nil
}
