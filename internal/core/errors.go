// Package core provides the domain types, relationship table and error
// taxonomy shared by the store, the codec and the HTTP server.
package core

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or incomplete payload (400)
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeNotFound indicates an unknown entity or relationship (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeMethodNotAllowed indicates a verb not valid for the path shape (405)
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed_error"
	// ErrorTypeInternal indicates an unexpected failure (500)
	ErrorTypeInternal ErrorType = "internal_error"
)

// APIError is the error type returned by every domain operation.
// Messages is ordered and never empty.
type APIError struct {
	Type       ErrorType `json:"type"`
	Messages   []string  `json:"messages"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, strings.Join(e.Messages, "; "))
}

// Unwrap implements the error unwrapping interface
func (e *APIError) Unwrap() error {
	return e.Err
}

// Message returns the first message of the error.
func (e *APIError) Message() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Envelope converts the error into its wire representation.
func (e *APIError) Envelope() ErrorEnvelope {
	msgs := e.Messages
	if len(msgs) == 0 {
		msgs = []string{http.StatusText(e.HTTPStatusCode())}
	}
	return ErrorEnvelope{Messages: msgs}
}

// ErrorEnvelope is the body of every error response:
//
//	{"errorMessages": ["..."]}
//	<errorMessages><errorMessage>...</errorMessage></errorMessages>
type ErrorEnvelope struct {
	XMLName  xml.Name `json:"-" xml:"errorMessages"`
	Messages []string `json:"errorMessages" xml:"errorMessage"`
}

// NewValidationError creates a new validation error (400)
func NewValidationError(err error, messages ...string) *APIError {
	return &APIError{
		Type:       ErrorTypeValidation,
		Messages:   messages,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:       ErrorTypeNotFound,
		Messages:   []string{message},
		StatusCode: http.StatusNotFound,
	}
}

// NewMethodNotAllowedError creates a new method not allowed error (405)
func NewMethodNotAllowedError(method, path string) *APIError {
	return &APIError{
		Type:       ErrorTypeMethodNotAllowed,
		Messages:   []string{fmt.Sprintf("Method %s not allowed for %s", method, path)},
		StatusCode: http.StatusMethodNotAllowed,
	}
}

// NewInternalError creates a new internal error (500). The cause is kept
// for logging only.
func NewInternalError(err error) *APIError {
	return &APIError{
		Type:       ErrorTypeInternal,
		Messages:   []string{"an unexpected error occurred"},
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// ErrInstanceNotFound is returned by lookups of a single entity.
func ErrInstanceNotFound(kind Kind, id string) *APIError {
	return NewNotFoundError(fmt.Sprintf("Could not find an instance with %s/%s", kind.Collection(), id))
}

// ErrNoSuchEntity is returned when amending or replacing an unknown entity.
func ErrNoSuchEntity(kind Kind, id string) *APIError {
	return NewNotFoundError(fmt.Sprintf("No such %s entity instance with GUID or ID %s found", kind, id))
}

// ErrNoInstances is returned when deleting something that does not exist.
// Segments are joined into the request path, e.g. projects/40000.
func ErrNoInstances(segments ...string) *APIError {
	return NewNotFoundError("Could not find any instances with " + strings.Join(segments, "/"))
}

// ErrParentNotFound is returned when the parent side of a new link is missing.
func ErrParentNotFound(id string) *APIError {
	return NewNotFoundError(fmt.Sprintf("Could not find parent thing with GUID or ID %s", id))
}

// ErrThingNotFound is returned when the target side of a new link is missing.
func ErrThingNotFound() *APIError {
	return NewNotFoundError("Could not find thing matching value for id")
}

// ErrUnknownPath is returned for paths no route matches.
func ErrUnknownPath(path string) *APIError {
	return NewNotFoundError("Could not find any endpoint matching " + path)
}

// ErrIDMismatch is returned when a body id disagrees with the id in the path.
func ErrIDMismatch(pathID, bodyID string) *APIError {
	return NewValidationError(nil, fmt.Sprintf("Failed Validation: id %s does not match %s", bodyID, pathID))
}

// ErrBodyTooLarge is returned when a request body exceeds the configured limit.
func ErrBodyTooLarge() *APIError {
	return &APIError{
		Type:       ErrorTypeValidation,
		Messages:   []string{"Request body too large"},
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}
