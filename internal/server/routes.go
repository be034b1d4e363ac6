package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"todomanager/internal/core"
)

// allowOrder is the order methods appear in an Allow header.
var allowOrder = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// dispatchedMethods are registered on every route so that anything outside
// a route's method set reaches methodNotAllowed with the route's Allow header.
var dispatchedMethods = append(append([]string(nil), allowOrder...), http.MethodTrace, http.MethodConnect)

// route is one path shape and the handlers it serves. HEAD and OPTIONS are
// derived in register and never listed here.
type route struct {
	path     string
	tag      string
	handlers map[string]echo.HandlerFunc
	// summaries describe each explicit handler for the API document.
	summaries map[string]string
}

// allowed lists the methods served on r: the explicit handlers, HEAD when
// GET is served, and OPTIONS.
func (r route) allowed() []string {
	var out []string
	for _, m := range allowOrder {
		switch {
		case m == http.MethodOptions:
			out = append(out, m)
		case m == http.MethodHead:
			if _, ok := r.handlers[http.MethodGet]; ok {
				out = append(out, m)
			}
		default:
			if _, ok := r.handlers[m]; ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (r route) register(e *echo.Echo) {
	allow := strings.Join(r.allowed(), ", ")
	get, hasGet := r.handlers[http.MethodGet]

	for _, m := range dispatchedMethods {
		h, ok := r.handlers[m]
		switch {
		case ok:
		case m == http.MethodHead && hasGet:
			h = headOf(get)
		case m == http.MethodOptions:
			h = options(allow)
		default:
			h = methodNotAllowed(allow)
		}
		e.Add(m, r.path, h)
	}
}

// routes builds the route table from the kinds and their relations.
func (h *Handler) routes() []route {
	var out []route
	for _, kind := range core.Kinds {
		name := kind.Collection()
		collection := "/" + name
		out = append(out,
			route{
				path: collection,
				tag:  name,
				handlers: map[string]echo.HandlerFunc{
					http.MethodGet:  h.listEntities(kind),
					http.MethodPost: h.createEntity(kind),
				},
				summaries: map[string]string{
					http.MethodGet:  "List " + name + ", filtered by query parameters",
					http.MethodPost: "Create a " + string(kind),
				},
			},
			route{
				path: collection + "/:id",
				tag:  name,
				handlers: map[string]echo.HandlerFunc{
					http.MethodGet:    h.getEntity(kind),
					http.MethodPost:   h.amendEntity(kind),
					http.MethodPut:    h.replaceEntity(kind),
					http.MethodDelete: h.deleteEntity(kind),
				},
				summaries: map[string]string{
					http.MethodGet:    "Get a " + string(kind),
					http.MethodPost:   "Amend the supplied fields of a " + string(kind),
					http.MethodPut:    "Replace a " + string(kind),
					http.MethodDelete: "Delete a " + string(kind) + " and its relationships",
				},
			},
		)
		for _, rel := range core.RelationsFrom(kind) {
			relPath := collection + "/:id/" + rel.Name
			out = append(out,
				route{
					path: relPath,
					tag:  name,
					handlers: map[string]echo.HandlerFunc{
						http.MethodGet:  h.listLinked(rel),
						http.MethodPost: h.createLink(rel),
					},
					summaries: map[string]string{
						http.MethodGet:  "List the " + rel.To.Collection() + " linked to a " + string(kind),
						http.MethodPost: "Link a " + string(rel.To) + " to a " + string(kind) + ", creating it when no id is given",
					},
				},
				route{
					path: relPath + "/:relid",
					tag:  name,
					handlers: map[string]echo.HandlerFunc{
						http.MethodDelete: h.deleteLink(rel),
					},
					summaries: map[string]string{
						http.MethodDelete: "Unlink a " + string(rel.To) + " from a " + string(kind),
					},
				},
			)
		}
	}
	return out
}

func options(allow string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAllow, allow)
		return c.NoContent(http.StatusOK)
	}
}

func methodNotAllowed(allow string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAllow, allow)
		return core.NewMethodNotAllowedError(c.Request().Method, c.Request().URL.Path)
	}
}

// headOf runs the GET handler with the body discarded so HEAD answers the
// same status and headers.
func headOf(get echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		res.Writer = &discardBody{ResponseWriter: res.Writer}
		return get(c)
	}
}

type discardBody struct {
	http.ResponseWriter
}

func (d *discardBody) Write(b []byte) (int, error) {
	return len(b), nil
}
