package codec

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"todomanager/internal/core"
)

// DecodeFields parses a request body into a flat field map. JSON bodies must
// be a single object; XML bodies are read as one root element whose direct
// children are fields. An empty body decodes to an empty map.
func DecodeFields(body []byte, format Format) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var (
		fields map[string]any
		err    error
	)
	if format == FormatXML {
		fields, err = decodeXML(body)
	} else {
		fields, err = decodeJSON(body)
	}
	if err != nil {
		return nil, core.NewValidationError(err, "Failed to parse request body: "+err.Error())
	}
	return fields, nil
}

func decodeJSON(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func decodeXML(body []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	fields := make(map[string]any)

	depth := 0
	sawRoot := false
	var (
		field string
		text  strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if sawRoot {
					return nil, errors.New("multiple root elements")
				}
				sawRoot = true
			case 2:
				field = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				fields[field] = strings.TrimSpace(text.String())
			}
			depth--
		}
	}
	if !sawRoot {
		return nil, errors.New("no root element")
	}
	return fields, nil
}
