package server

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"todomanager/internal/auditlog"
	"todomanager/internal/codec"
	"todomanager/internal/core"
)

// handleHTTPError renders every error as an errorMessages envelope in the
// negotiated format.
func handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err, c)
	auditlog.EnrichEntryWithError(c, string(apiErr.Type), apiErr.Messages)
	if apiErr.Type == core.ErrorTypeInternal {
		slog.Error("request failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
		)
	}

	if err := respond(c, apiErr.HTTPStatusCode(), apiErr.Envelope()); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func toAPIError(err error, c echo.Context) *core.APIError {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return core.ErrUnknownPath(c.Request().URL.Path)
		case http.StatusMethodNotAllowed:
			return core.NewMethodNotAllowedError(c.Request().Method, c.Request().URL.Path)
		case http.StatusRequestEntityTooLarge:
			return core.ErrBodyTooLarge()
		}
		if he.Code >= http.StatusInternalServerError {
			return core.NewInternalError(err)
		}
		return &core.APIError{
			Type:       core.ErrorTypeValidation,
			Messages:   []string{fmt.Sprint(he.Message)},
			StatusCode: he.Code,
			Err:        err,
		}
	}

	return core.NewInternalError(err)
}

// respond writes v in the format selected by the Accept header.
func respond(c echo.Context, status int, v any) error {
	format := codec.Negotiate(c.Request().Header.Get(echo.HeaderAccept))

	var (
		body []byte
		err  error
	)
	if format == codec.FormatXML {
		body, err = xml.Marshal(v)
		if err == nil {
			body = append([]byte(xml.Header), body...)
		}
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		return core.NewInternalError(err)
	}
	return c.Blob(status, format.ContentType(), body)
}
