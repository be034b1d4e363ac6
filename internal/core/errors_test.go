package core

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "single message",
			err:      NewNotFoundError("Could not find an instance with todos/9"),
			expected: "not_found_error: Could not find an instance with todos/9",
		},
		{
			name:     "several messages",
			err:      NewValidationError(nil, "title : field is mandatory", "Could not find field: colour"),
			expected: "validation_error: title : field is mandatory; Could not find field: colour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	apiErr := NewInternalError(originalErr)

	if unwrapped := apiErr.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
	if !errors.Is(apiErr, originalErr) {
		t.Error("errors.Is should see the wrapped cause")
	}
}

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{"explicit status code", &APIError{Type: ErrorTypeValidation, StatusCode: http.StatusRequestEntityTooLarge}, http.StatusRequestEntityTooLarge},
		{"validation default", &APIError{Type: ErrorTypeValidation}, http.StatusBadRequest},
		{"not found default", &APIError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"method not allowed default", &APIError{Type: ErrorTypeMethodNotAllowed}, http.StatusMethodNotAllowed},
		{"internal default", &APIError{Type: ErrorTypeInternal}, http.StatusInternalServerError},
		{"unknown type", &APIError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *APIError
		status  int
		message string
	}{
		{"instance not found", ErrInstanceNotFound(KindCategory, "99999"), http.StatusNotFound, "Could not find an instance with categories/99999"},
		{"no such entity", ErrNoSuchEntity(KindProject, "hello"), http.StatusNotFound, "No such project entity instance with GUID or ID hello found"},
		{"no instances", ErrNoInstances("projects", "40000"), http.StatusNotFound, "Could not find any instances with projects/40000"},
		{"parent not found", ErrParentNotFound("7"), http.StatusNotFound, "Could not find parent thing with GUID or ID 7"},
		{"thing not found", ErrThingNotFound(), http.StatusNotFound, "Could not find thing matching value for id"},
		{"unknown path", ErrUnknownPath("/nothing"), http.StatusNotFound, "Could not find any endpoint matching /nothing"},
		{"id mismatch", ErrIDMismatch("1", "2"), http.StatusBadRequest, "Failed Validation: id 2 does not match 1"},
		{"body too large", ErrBodyTooLarge(), http.StatusRequestEntityTooLarge, "Request body too large"},
		{"method not allowed", NewMethodNotAllowedError(http.MethodPatch, "/todos"), http.StatusMethodNotAllowed, "Method PATCH not allowed for /todos"},
		{"internal", NewInternalError(errors.New("boom")), http.StatusInternalServerError, "an unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.status {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.status)
			}
			if got := tt.err.Message(); got != tt.message {
				t.Errorf("Message() = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := NewValidationError(nil, "first", "second").Envelope()

	j, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if got, want := string(j), `{"errorMessages":["first","second"]}`; got != want {
		t.Errorf("JSON = %s, want %s", got, want)
	}

	x, err := xml.Marshal(env)
	if err != nil {
		t.Fatalf("xml.Marshal: %v", err)
	}
	if got, want := string(x), `<errorMessages><errorMessage>first</errorMessage><errorMessage>second</errorMessage></errorMessages>`; got != want {
		t.Errorf("XML = %s, want %s", got, want)
	}
}

func TestErrorEnvelope_FallsBackToStatusText(t *testing.T) {
	env := (&APIError{Type: ErrorTypeNotFound}).Envelope()
	if len(env.Messages) != 1 || env.Messages[0] != http.StatusText(http.StatusNotFound) {
		t.Errorf("Messages = %v, want [%q]", env.Messages, http.StatusText(http.StatusNotFound))
	}
}
