package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/swaggo/swag"

	"todomanager/internal/version"
)

func init() {
	swag.Register(swag.Name, apiDoc{})
}

// apiDoc serves a Swagger 2.0 document built from the route table, so the
// document cannot drift from what is registered.
type apiDoc struct{}

func (apiDoc) ReadDoc() string {
	return buildAPIDoc()
}

var buildAPIDoc = sync.OnceValue(func() string {
	paths := make(map[string]map[string]any)
	for _, r := range (&Handler{}).routes() {
		ops := make(map[string]any, len(r.handlers))
		params := pathParams(r.path)
		for _, m := range allowOrder {
			if _, ok := r.handlers[m]; !ok {
				continue
			}
			op := map[string]any{
				"tags":      []string{r.tag},
				"summary":   r.summaries[m],
				"produces":  []string{"application/json", "application/xml"},
				"responses": responsesFor(m),
			}
			opParams := append([]any(nil), params...)
			if m == http.MethodPost || m == http.MethodPut {
				op["consumes"] = []string{"application/json", "application/xml"}
				opParams = append(opParams, map[string]any{
					"name":     "body",
					"in":       "body",
					"required": true,
					"schema":   map[string]any{"type": "object"},
				})
			}
			if len(opParams) > 0 {
				op["parameters"] = opParams
			}
			ops[strings.ToLower(m)] = op
		}
		paths[swaggerPath(r.path)] = ops
	}

	doc := map[string]any{
		"swagger": "2.0",
		"info": map[string]any{
			"title":       "todomanager API",
			"description": "Todos, projects and categories with many-to-many relationships.",
			"version":     version.Version,
		},
		"basePath": "/",
		"paths":    paths,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
})

// swaggerPath rewrites echo's :param segments as {param}.
func swaggerPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/")
}

func pathParams(p string) []any {
	var out []any
	for _, s := range strings.Split(p, "/") {
		if strings.HasPrefix(s, ":") {
			out = append(out, map[string]any{
				"name":     s[1:],
				"in":       "path",
				"required": true,
				"type":     "string",
			})
		}
	}
	return out
}

func responsesFor(method string) map[string]any {
	errs := map[string]any{"description": "errorMessages envelope"}
	switch method {
	case http.MethodPost:
		return map[string]any{
			"200": map[string]any{"description": "updated"},
			"201": map[string]any{"description": "created"},
			"400": errs,
			"404": errs,
		}
	case http.MethodDelete:
		return map[string]any{
			"200": map[string]any{"description": "deleted"},
			"404": errs,
		}
	default:
		return map[string]any{
			"200": map[string]any{"description": "OK"},
			"400": errs,
			"404": errs,
		}
	}
}
