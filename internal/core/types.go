package core

import "slices"

// Kind identifies one of the three entity types.
type Kind string

const (
	KindTodo     Kind = "todo"
	KindProject  Kind = "project"
	KindCategory Kind = "category"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindTodo, KindProject, KindCategory}

var collections = map[Kind]string{
	KindTodo:     "todos",
	KindProject:  "projects",
	KindCategory: "categories",
}

// Collection returns the pluralized name used in paths and collection bodies.
func (k Kind) Collection() string {
	return collections[k]
}

// KindFromCollection resolves a collection name such as "todos".
func KindFromCollection(name string) (Kind, bool) {
	for k, c := range collections {
		if c == name {
			return k, true
		}
	}
	return "", false
}

// EntityRef identifies one entity.
type EntityRef struct {
	Kind Kind
	ID   string
}

// RelationClass is one of the three undirected pairings between kinds.
type RelationClass string

const (
	ClassTodoCategory    RelationClass = "todo-category"
	ClassProjectCategory RelationClass = "project-category"
	ClassProjectTodo     RelationClass = "project-todo"
)

// Classes lists every relationship class.
var Classes = []RelationClass{ClassTodoCategory, ClassProjectCategory, ClassProjectTodo}

// Relation is one direction of a relationship class as exposed on the wire,
// e.g. /projects/{id}/tasks walks project-todo from the project side.
type Relation struct {
	Name  string
	From  Kind
	To    Kind
	Class RelationClass
}

// Relations is the complete relationship table. Each class appears once per
// direction.
var Relations = []Relation{
	{Name: "categories", From: KindTodo, To: KindCategory, Class: ClassTodoCategory},
	{Name: "tasksof", From: KindTodo, To: KindProject, Class: ClassProjectTodo},
	{Name: "tasks", From: KindProject, To: KindTodo, Class: ClassProjectTodo},
	{Name: "categories", From: KindProject, To: KindCategory, Class: ClassProjectCategory},
	{Name: "todos", From: KindCategory, To: KindTodo, Class: ClassTodoCategory},
	{Name: "projects", From: KindCategory, To: KindProject, Class: ClassProjectCategory},
}

// RelationsFrom returns the relations whose parent side is kind.
func RelationsFrom(kind Kind) []Relation {
	var out []Relation
	for _, r := range Relations {
		if r.From == kind {
			out = append(out, r)
		}
	}
	return out
}

// LookupRelation finds the relation named name on kind.
func LookupRelation(kind Kind, name string) (Relation, bool) {
	for _, r := range Relations {
		if r.From == kind && r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Participates reports whether kind is an endpoint of class.
func (c RelationClass) Participates(kind Kind) bool {
	return slices.ContainsFunc(Relations, func(r Relation) bool {
		return r.Class == c && r.From == kind
	})
}
