package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"todomanager/internal/core"
)

// Mode selects which schema a body is validated against.
type Mode int

const (
	// ModeCreate is used for new entities. Title is required and id is refused.
	ModeCreate Mode = iota
	// ModeReplace is used for PUT. Title is required and id is tolerated.
	ModeReplace
	// ModeAmend is used for POST to an item. Every field is optional.
	ModeAmend
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeReplace:
		return "replace"
	default:
		return "amend"
	}
}

type schemaKey struct {
	kind core.Kind
	mode Mode
}

// Validator checks decoded bodies against per-kind JSON Schemas and turns
// them into string field maps.
type Validator struct {
	schemas map[schemaKey]*jsonschema.Schema
}

// NewValidator compiles the schemas for every kind and mode.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[schemaKey]*jsonschema.Schema)}
	compiler := jsonschema.NewCompiler()

	for _, kind := range core.Kinds {
		for _, mode := range []Mode{ModeCreate, ModeReplace, ModeAmend} {
			doc, err := json.Marshal(schemaFor(kind, mode))
			if err != nil {
				return nil, fmt.Errorf("marshal %s/%s schema: %w", kind, mode, err)
			}
			url := fmt.Sprintf("mem://schemas/%s/%s.json", kind, mode)
			if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
				return nil, fmt.Errorf("add %s/%s schema: %w", kind, mode, err)
			}
			schema, err := compiler.Compile(url)
			if err != nil {
				return nil, fmt.Errorf("compile %s/%s schema: %w", kind, mode, err)
			}
			v.schemas[schemaKey{kind, mode}] = schema
		}
	}
	return v, nil
}

func schemaFor(kind core.Kind, mode Mode) map[string]any {
	props := map[string]any{}
	var required []string
	for _, f := range core.Fields(kind) {
		switch {
		case f.Boolean:
			props[f.Name] = map[string]any{
				"anyOf": []any{
					map[string]any{"type": "boolean"},
					map[string]any{"type": "string", "enum": []string{"true", "false"}},
				},
			}
		case f.Required:
			props[f.Name] = map[string]any{"type": "string", "minLength": 1}
		default:
			props[f.Name] = map[string]any{"type": "string"}
		}
		if f.Required && mode != ModeAmend {
			required = append(required, f.Name)
		}
	}
	if mode != ModeCreate {
		props["id"] = map[string]any{"type": []string{"string", "integer"}}
	}

	s := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// Validate checks body for kind in the given mode and returns its fields as
// strings. Booleans become "true" or "false". Every problem found is
// reported in one validation error with sorted, de-duplicated messages.
func (v *Validator) Validate(kind core.Kind, mode Mode, body map[string]any) (map[string]string, error) {
	if mode == ModeCreate {
		if _, ok := body["id"]; ok {
			return nil, core.NewValidationError(nil, core.MsgCreateWithID)
		}
	}
	schema, ok := v.schemas[schemaKey{kind, mode}]
	if !ok {
		return nil, core.NewInternalError(fmt.Errorf("no schema for %s/%s", kind, mode))
	}

	if err := schema.Validate(body); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, core.NewInternalError(err)
		}
		msgs := schemaMessages(kind, ve)
		if len(msgs) == 0 {
			msgs = []string{ve.Message}
		}
		return nil, core.NewValidationError(err, msgs...)
	}

	out := make(map[string]string, len(body))
	for name, raw := range body {
		out[name] = Stringify(raw)
	}
	return out, nil
}

// Stringify renders a decoded scalar the way the store keeps it.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

var quoted = regexp.MustCompile(`'([^']*)'`)

func schemaMessages(kind core.Kind, ve *jsonschema.ValidationError) []string {
	var msgs []string
	collectLeaves(ve, func(leaf *jsonschema.ValidationError) {
		msgs = append(msgs, leafMessages(kind, leaf)...)
	})
	slices.Sort(msgs)
	return slices.Compact(msgs)
}

func collectLeaves(ve *jsonschema.ValidationError, fn func(*jsonschema.ValidationError)) {
	if ve == nil {
		return
	}
	if len(ve.Causes) == 0 {
		fn(ve)
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, fn)
	}
}

func leafMessages(kind core.Kind, leaf *jsonschema.ValidationError) []string {
	kw := leaf.KeywordLocation
	switch {
	case strings.HasSuffix(kw, "/required"):
		var out []string
		for _, name := range quotedNames(leaf.Message) {
			out = append(out, core.MsgMandatory(name))
		}
		return out
	case strings.HasSuffix(kw, "/additionalProperties"):
		var out []string
		for _, name := range quotedNames(leaf.Message) {
			if name == "id" {
				out = append(out, core.MsgCreateWithID)
				continue
			}
			out = append(out, core.MsgUnknownField(name))
		}
		return out
	}

	name := propertyName(leaf.InstanceLocation)
	if name == "" {
		return []string{leaf.Message}
	}
	f, ok := core.LookupField(kind, name)
	switch {
	case !ok:
		return []string{core.MsgUnknownField(name)}
	case f.Boolean:
		return []string{core.MsgNotBoolean(name)}
	case strings.HasSuffix(kw, "/minLength"):
		return []string{core.MsgEmpty(name)}
	default:
		return []string{core.MsgNotString(name)}
	}
}

func quotedNames(msg string) []string {
	var names []string
	for _, m := range quoted.FindAllStringSubmatch(msg, -1) {
		names = append(names, m[1])
	}
	return names
}

// propertyName extracts the top-level property from a JSON pointer such as
// "/title".
func propertyName(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if i := strings.IndexByte(ptr, '/'); i >= 0 {
		ptr = ptr[:i]
	}
	ptr = strings.ReplaceAll(ptr, "~1", "/")
	return strings.ReplaceAll(ptr, "~0", "~")
}
