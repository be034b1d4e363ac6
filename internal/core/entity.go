package core

import "slices"

// Field describes one mutable scalar field of a kind.
type Field struct {
	Name     string
	Boolean  bool
	Required bool
	Default  string
}

var (
	fieldTitle       = Field{Name: "title", Required: true}
	fieldDescription = Field{Name: "description"}
	fieldCompleted   = Field{Name: "completed", Boolean: true, Default: "false"}
	fieldActive      = Field{Name: "active", Boolean: true, Default: "false"}
)

var kindFields = map[Kind][]Field{
	KindTodo:     {fieldTitle, fieldDescription, fieldCompleted},
	KindProject:  {fieldTitle, fieldDescription, fieldCompleted, fieldActive},
	KindCategory: {fieldTitle, fieldDescription},
}

// Fields returns the mutable fields of kind in rendering order.
func Fields(kind Kind) []Field {
	return kindFields[kind]
}

// LookupField finds a field of kind by name.
func LookupField(kind Kind, name string) (Field, bool) {
	i := slices.IndexFunc(kindFields[kind], func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return kindFields[kind][i], true
}

// Entity is a snapshot of one stored record. Values are always strings;
// booleans are "true" or "false".
type Entity struct {
	Kind   Kind
	ID     string
	Fields map[string]string
	// Links holds outbound relationship ids keyed by relation name,
	// in link-creation order.
	Links map[string][]string
}

// Ref returns the entity's reference.
func (e *Entity) Ref() EntityRef {
	return EntityRef{Kind: e.Kind, ID: e.ID}
}

// Get returns the value of a field, or its default when unset.
func (e *Entity) Get(name string) string {
	if v, ok := e.Fields[name]; ok {
		return v
	}
	f, _ := LookupField(e.Kind, name)
	return f.Default
}

// Validation messages shared by the codec and the store.

// MsgMandatory reports a missing required field.
func MsgMandatory(field string) string {
	return field + " : field is mandatory"
}

// MsgEmpty reports a required field supplied as an empty string.
func MsgEmpty(field string) string {
	return "Failed Validation: " + field + " : can not be empty"
}

// MsgUnknownField reports a field the kind does not define.
func MsgUnknownField(field string) string {
	return "Could not find field: " + field
}

// MsgNotBoolean reports a malformed boolean value.
func MsgNotBoolean(field string) string {
	return "Failed Validation: " + field + " should be BOOLEAN"
}

// MsgNotString reports a non-string value for a string field.
func MsgNotString(field string) string {
	return "Failed Validation: " + field + " should be STRING"
}

// MsgCreateWithID reports an id supplied in a creation payload.
const MsgCreateWithID = "Invalid Creation: Failed Validation: Not allowed to create with id"
