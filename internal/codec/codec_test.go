package codec

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"todomanager/internal/core"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		accept string
		want   Format
	}{
		{"", FormatJSON},
		{"*/*", FormatJSON},
		{"application/json", FormatJSON},
		{"application/xml", FormatXML},
		{"text/xml", FormatXML},
		{"application/xml, application/json", FormatXML},
		{"application/json, application/xml", FormatJSON},
		{"application/json;q=0.5, application/xml", FormatXML},
		{"text/html, */*;q=0.8", FormatJSON},
		{"text/html", FormatJSON},
		{"application/xml;q=0", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.accept))
		})
	}
}

func TestRequestFormat(t *testing.T) {
	assert.Equal(t, FormatXML, RequestFormat("application/xml"))
	assert.Equal(t, FormatXML, RequestFormat("text/xml; charset=utf-8"))
	assert.Equal(t, FormatJSON, RequestFormat("application/json"))
	assert.Equal(t, FormatJSON, RequestFormat(""))
}

func TestDecodeFields(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		got, err := DecodeFields([]byte(`{"title":"t","completed":true}`), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"title": "t", "completed": true}, got)
	})

	t.Run("xml flat element", func(t *testing.T) {
		body := `<?xml version="1.0"?><todo><title> t </title><completed>false</completed></todo>`
		got, err := DecodeFields([]byte(body), FormatXML)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"title": "t", "completed": "false"}, got)
	})

	t.Run("empty body", func(t *testing.T) {
		got, err := DecodeFields(nil, FormatJSON)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	for name, tc := range map[string]struct {
		body   string
		format Format
	}{
		"json array":      {`[1,2]`, FormatJSON},
		"truncated json":  {`{"title":`, FormatJSON},
		"trailing json":   {`{} {}`, FormatJSON},
		"malformed xml":   {`<todo><title>t</todo>`, FormatXML},
		"two xml roots":   {`<a/><b/>`, FormatXML},
		"xml with no tag": {`just text`, FormatXML},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFields([]byte(tc.body), tc.format)
			var apiErr *core.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 400, apiErr.HTTPStatusCode())
			assert.Contains(t, apiErr.Message(), "Failed to parse request body: ")
		})
	}
}

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name string
		kind core.Kind
		mode Mode
		body map[string]any
		want map[string]string
		msgs []string
	}{
		{
			name: "json boolean is normalized",
			kind: core.KindTodo,
			mode: ModeCreate,
			body: map[string]any{"title": "t", "completed": true},
			want: map[string]string{"title": "t", "completed": "true"},
		},
		{
			name: "string boolean accepted",
			kind: core.KindProject,
			mode: ModeCreate,
			body: map[string]any{"title": "t", "active": "false"},
			want: map[string]string{"title": "t", "active": "false"},
		},
		{
			name: "amend without title",
			kind: core.KindCategory,
			mode: ModeAmend,
			body: map[string]any{"description": "d"},
			want: map[string]string{"description": "d"},
		},
		{
			name: "replace keeps numeric id as string",
			kind: core.KindTodo,
			mode: ModeReplace,
			body: map[string]any{"id": float64(3), "title": "t"},
			want: map[string]string{"id": "3", "title": "t"},
		},
		{
			name: "missing title",
			kind: core.KindTodo,
			mode: ModeCreate,
			body: map[string]any{"description": "d"},
			msgs: []string{"title : field is mandatory"},
		},
		{
			name: "empty title",
			kind: core.KindProject,
			mode: ModeReplace,
			body: map[string]any{"title": ""},
			msgs: []string{"Failed Validation: title : can not be empty"},
		},
		{
			name: "unknown field",
			kind: core.KindCategory,
			mode: ModeCreate,
			body: map[string]any{"title": "t", "priority": "high"},
			msgs: []string{"Could not find field: priority"},
		},
		{
			name: "bad boolean",
			kind: core.KindTodo,
			mode: ModeAmend,
			body: map[string]any{"completed": "yes"},
			msgs: []string{"Failed Validation: completed should be BOOLEAN"},
		},
		{
			name: "numeric boolean",
			kind: core.KindTodo,
			mode: ModeAmend,
			body: map[string]any{"completed": float64(1)},
			msgs: []string{"Failed Validation: completed should be BOOLEAN"},
		},
		{
			name: "non-string title",
			kind: core.KindTodo,
			mode: ModeCreate,
			body: map[string]any{"title": float64(5)},
			msgs: []string{"Failed Validation: title should be STRING"},
		},
		{
			name: "id on create",
			kind: core.KindTodo,
			mode: ModeCreate,
			body: map[string]any{"id": "1", "title": "t"},
			msgs: []string{core.MsgCreateWithID},
		},
		{
			name: "several problems",
			kind: core.KindTodo,
			mode: ModeCreate,
			body: map[string]any{"completed": "nope", "bogus": "x"},
			msgs: []string{
				"Could not find field: bogus",
				"Failed Validation: completed should be BOOLEAN",
				"title : field is mandatory",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.kind, tt.mode, tt.body)
			if tt.msgs == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var apiErr *core.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, core.ErrorTypeValidation, apiErr.Type)
			assert.Equal(t, tt.msgs, apiErr.Messages)
		})
	}
}

func sampleTodo() core.Entity {
	return core.Entity{
		Kind:   core.KindTodo,
		ID:     "1",
		Fields: map[string]string{"title": "scan paperwork", "description": "", "completed": "false"},
		Links: map[string][]string{
			"categories": {"1"},
			"tasksof":    {"1"},
		},
	}
}

func TestItemJSON(t *testing.T) {
	b, err := json.Marshal(Item{Entity: sampleTodo()})
	require.NoError(t, err)

	assert.Equal(t,
		`{"id":"1","title":"scan paperwork","description":"","completed":"false","categories":[{"id":"1"}],"tasksof":[{"id":"1"}]}`,
		string(b))
}

func TestListJSON(t *testing.T) {
	b, err := json.Marshal(NewList(core.KindTodo, []core.Entity{sampleTodo()}))
	require.NoError(t, err)

	body := string(b)
	assert.Equal(t, "1", gjson.Get(body, "todos.#").String())
	assert.Equal(t, "scan paperwork", gjson.Get(body, "todos.0.title").String())
	assert.Equal(t, "1", gjson.Get(body, "todos.0.categories.0.id").String())

	empty, err := json.Marshal(NewList(core.KindCategory, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories":[]}`, string(empty))
}

func TestItemXML(t *testing.T) {
	b, err := xml.Marshal(Item{Entity: sampleTodo()})
	require.NoError(t, err)

	assert.Equal(t,
		`<todo><id>1</id><title>scan paperwork</title><description></description><completed>false</completed>`+
			`<categories><id>1</id></categories><tasksof><id>1</id></tasksof></todo>`,
		string(b))
}

func TestListXML(t *testing.T) {
	b, err := xml.Marshal(NewList(core.KindTodo, []core.Entity{sampleTodo(), {
		Kind: core.KindTodo, ID: "2", Fields: map[string]string{"title": "file <paperwork>"},
	}}))
	require.NoError(t, err)

	var parsed struct {
		XMLName xml.Name `xml:"todos"`
		Todos   []struct {
			ID    string `xml:"id"`
			Title string `xml:"title"`
		} `xml:"todo"`
	}
	require.NoError(t, xml.Unmarshal(b, &parsed))
	require.Len(t, parsed.Todos, 2)
	assert.Equal(t, "2", parsed.Todos[1].ID)
	assert.Equal(t, "file <paperwork>", parsed.Todos[1].Title)

	empty, err := xml.Marshal(NewList(core.KindProject, nil))
	require.NoError(t, err)
	assert.Equal(t, `<projects></projects>`, string(empty))
}

func TestErrorEnvelope(t *testing.T) {
	env := core.ErrInstanceNotFound(core.KindCategory, "99999").Envelope()

	j, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Equal(t, "Could not find an instance with categories/99999", gjson.GetBytes(j, "errorMessages.0").String())

	x, err := xml.Marshal(env)
	require.NoError(t, err)
	assert.Equal(t,
		`<errorMessages><errorMessage>Could not find an instance with categories/99999</errorMessage></errorMessages>`,
		string(x))
}
