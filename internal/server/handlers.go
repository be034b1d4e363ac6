package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"todomanager/internal/auditlog"
	"todomanager/internal/codec"
	"todomanager/internal/core"
)

// EntityStore is the store surface the handlers need.
type EntityStore interface {
	List(kind core.Kind, filter map[string]string) []core.Entity
	Get(kind core.Kind, id string) (*core.Entity, error)
	Create(kind core.Kind, fields map[string]string) (*core.Entity, error)
	Replace(kind core.Kind, id string, fields map[string]string) (*core.Entity, error)
	Update(kind core.Kind, id string, fields map[string]string) (*core.Entity, error)
	Delete(kind core.Kind, id string) error
	Link(rel core.Relation, parentID, targetID string) (*core.Entity, error)
	LinkNew(rel core.Relation, parentID string, fields map[string]string) (*core.Entity, error)
	Unlink(rel core.Relation, parentID, targetID string) error
	Linked(rel core.Relation, parentID string) ([]core.Entity, error)
}

// BodyValidator checks a decoded body and returns its fields as strings.
type BodyValidator interface {
	Validate(kind core.Kind, mode codec.Mode, body map[string]any) (map[string]string, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers for the entity routes.
type Handler struct {
	store     EntityStore
	validator BodyValidator
	journal   Pinger
}

// NewHandler creates a new handler with the given store and validator.
func NewHandler(store EntityStore, validator BodyValidator) *Handler {
	return &Handler{
		store:     store,
		validator: validator,
	}
}

// Health handles GET /health. When a journal database is attached its
// reachability is reported too, and an unreachable one answers 503.
func (h *Handler) Health(c echo.Context) error {
	if h.journal == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.journal.Ping(ctx); err != nil {
		slog.Warn("journal storage unreachable", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"journal": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "journal": "ok"})
}

func (h *Handler) listEntities(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		auditlog.EnrichEntry(c, string(kind), "")
		var filter map[string]string
		if params := c.QueryParams(); len(params) > 0 {
			filter = make(map[string]string, len(params))
			for name, values := range params {
				if len(values) > 0 {
					filter[name] = values[0]
				}
			}
		}
		return respond(c, http.StatusOK, codec.NewList(kind, h.store.List(kind, filter)))
	}
}

func (h *Handler) createEntity(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		auditlog.EnrichEntry(c, string(kind), "")
		fields, err := h.readBody(c, kind, codec.ModeCreate)
		if err != nil {
			return err
		}
		e, err := h.store.Create(kind, fields)
		if err != nil {
			return err
		}
		auditlog.EnrichEntry(c, string(kind), e.ID)
		return respond(c, http.StatusCreated, codec.Item{Entity: *e})
	}
}

func (h *Handler) getEntity(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(kind), id)
		e, err := h.store.Get(kind, id)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, codec.NewList(kind, []core.Entity{*e}))
	}
}

// amendEntity handles POST to an item: only the supplied fields change.
func (h *Handler) amendEntity(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(kind), id)
		fields, err := h.readItemBody(c, kind, id, codec.ModeAmend)
		if err != nil {
			return err
		}
		e, err := h.store.Update(kind, id, fields)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, codec.Item{Entity: *e})
	}
}

// replaceEntity handles PUT: omitted optional fields return to their defaults.
func (h *Handler) replaceEntity(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(kind), id)
		fields, err := h.readItemBody(c, kind, id, codec.ModeReplace)
		if err != nil {
			return err
		}
		e, err := h.store.Replace(kind, id, fields)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, codec.Item{Entity: *e})
	}
}

func (h *Handler) deleteEntity(kind core.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(kind), id)
		if err := h.store.Delete(kind, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}

func (h *Handler) listLinked(rel core.Relation) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(rel.From), id)
		items, err := h.store.Linked(rel, id)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, codec.NewList(rel.To, items))
	}
}

// createLink links an existing target when the body names an id, and
// otherwise creates the target from the body and links it.
func (h *Handler) createLink(rel core.Relation) echo.HandlerFunc {
	return func(c echo.Context) error {
		parentID := c.Param("id")
		auditlog.EnrichEntry(c, string(rel.From), parentID)

		if _, err := h.store.Get(rel.From, parentID); err != nil {
			return core.ErrParentNotFound(parentID)
		}
		body, err := decodeBody(c)
		if err != nil {
			return err
		}

		var target *core.Entity
		if raw, ok := body["id"]; ok {
			target, err = h.store.Link(rel, parentID, codec.Stringify(raw))
		} else {
			var fields map[string]string
			fields, err = h.validator.Validate(rel.To, codec.ModeCreate, body)
			if err != nil {
				return err
			}
			target, err = h.store.LinkNew(rel, parentID, fields)
		}
		if err != nil {
			return err
		}
		return respond(c, http.StatusCreated, codec.Item{Entity: *target})
	}
}

func (h *Handler) deleteLink(rel core.Relation) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		auditlog.EnrichEntry(c, string(rel.From), id)
		if err := h.store.Unlink(rel, id, c.Param("relid")); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}

// readBody decodes and validates the request body for kind.
func (h *Handler) readBody(c echo.Context, kind core.Kind, mode codec.Mode) (map[string]string, error) {
	body, err := decodeBody(c)
	if err != nil {
		return nil, err
	}
	return h.validator.Validate(kind, mode, body)
}

// readItemBody is readBody for an existing item. The item must exist before
// the body is looked at, and a body id must name the item itself.
func (h *Handler) readItemBody(c echo.Context, kind core.Kind, id string, mode codec.Mode) (map[string]string, error) {
	if _, err := h.store.Get(kind, id); err != nil {
		return nil, core.ErrNoSuchEntity(kind, id)
	}
	fields, err := h.readBody(c, kind, mode)
	if err != nil {
		return nil, err
	}
	if bodyID, ok := fields["id"]; ok {
		if bodyID != id {
			return nil, core.ErrIDMismatch(id, bodyID)
		}
		delete(fields, "id")
	}
	return fields, nil
}

func decodeBody(c echo.Context) (map[string]any, error) {
	req := c.Request()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, core.NewValidationError(err, "Failed to parse request body: "+err.Error())
	}
	return codec.DecodeFields(raw, codec.RequestFormat(req.Header.Get(echo.HeaderContentType)))
}
