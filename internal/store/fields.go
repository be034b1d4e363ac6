package store

import (
	"sort"

	"todomanager/internal/core"
)

type mode int

const (
	modeCreate mode = iota
	modeReplace
	modeUpdate
)

// normalize validates fields against kind and returns the row to store.
// Create and replace yield a full row with defaults filled in; update yields
// only the supplied fields. All problems are reported together.
func normalize(kind core.Kind, fields map[string]string, m mode) (map[string]string, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var msgs []string
	row := make(map[string]string, len(core.Fields(kind)))
	for _, name := range names {
		v := fields[name]
		if name == "id" {
			// Matching ids are stripped by the caller on replace and update.
			continue
		}
		f, ok := core.LookupField(kind, name)
		if !ok {
			msgs = append(msgs, core.MsgUnknownField(name))
			continue
		}
		switch {
		case f.Boolean && v != "true" && v != "false":
			msgs = append(msgs, core.MsgNotBoolean(name))
		case f.Required && v == "":
			msgs = append(msgs, core.MsgEmpty(name))
		default:
			row[name] = v
		}
	}

	if m != modeUpdate {
		for _, f := range core.Fields(kind) {
			if _, ok := fields[f.Name]; ok {
				continue
			}
			if f.Required {
				msgs = append(msgs, core.MsgMandatory(f.Name))
				continue
			}
			row[f.Name] = f.Default
		}
	}

	if len(msgs) > 0 {
		return nil, core.NewValidationError(nil, msgs...)
	}
	return row, nil
}
