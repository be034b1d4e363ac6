// Package auditlog keeps a journal of the HTTP requests served.
// Entries are buffered in memory and written in batches to a configurable backend.
package auditlog

import (
	"context"
	"strings"
	"time"
)

// LogStore defines the interface for audit log storage backends.
// Implementations must be safe for concurrent use.
type LogStore interface {
	// WriteBatch writes multiple log entries to storage.
	WriteBatch(ctx context.Context, entries []*LogEntry) error

	// Flush forces any pending writes to complete.
	Flush(ctx context.Context) error

	// Close releases resources held by the store. The underlying
	// connection belongs to the storage layer and stays open.
	Close() error
}

// LogEntry is one served request. The top-level fields are stored as
// columns and indexed; Data holds everything else.
type LogEntry struct {
	ID         string    `json:"id" bson:"_id"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	DurationNs int64     `json:"duration_ns" bson:"duration_ns"`

	Method     string `json:"method" bson:"method"`
	Path       string `json:"path" bson:"path"`
	Route      string `json:"route" bson:"route"`
	StatusCode int    `json:"status_code" bson:"status_code"`
	RequestID  string `json:"request_id" bson:"request_id"`
	ClientIP   string `json:"client_ip" bson:"client_ip"`

	Data *LogData `json:"data" bson:"data"`
}

// LogData contains the optional request details.
// Fields are omitted when empty to save storage space.
type LogData struct {
	UserAgent   string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	Query       string `json:"query,omitempty" bson:"query,omitempty"`
	Accept      string `json:"accept,omitempty" bson:"accept,omitempty"`
	ContentType string `json:"content_type,omitempty" bson:"content_type,omitempty"`

	// Filled in by handlers
	EntityKind string `json:"entity_kind,omitempty" bson:"entity_kind,omitempty"`
	EntityID   string `json:"entity_id,omitempty" bson:"entity_id,omitempty"`

	ErrorType     string   `json:"error_type,omitempty" bson:"error_type,omitempty"`
	ErrorMessages []string `json:"error_messages,omitempty" bson:"error_messages,omitempty"`

	// Optional headers (when audit.log_headers=true)
	// Sensitive headers are auto-redacted
	RequestHeaders  map[string]string `json:"request_headers,omitempty" bson:"request_headers,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty" bson:"response_headers,omitempty"`

	// Optional bodies (when audit.log_bodies=true). JSON bodies are kept as
	// decoded values so MongoDB stores them as documents; XML stays a string.
	RequestBody                any  `json:"request_body,omitempty" bson:"request_body,omitempty"`
	ResponseBody               any  `json:"response_body,omitempty" bson:"response_body,omitempty"`
	RequestBodyTooBigToHandle  bool `json:"request_body_too_big_to_handle,omitempty" bson:"request_body_too_big_to_handle,omitempty"`
	ResponseBodyTooBigToHandle bool `json:"response_body_too_big_to_handle,omitempty" bson:"response_body_too_big_to_handle,omitempty"`
}

// RedactedHeaders contains headers that should be automatically redacted.
// Values are replaced with "[REDACTED]" to prevent leaking secrets.
var RedactedHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"set-cookie",
	"x-auth-token",
	"x-access-token",
	"proxy-authorization",
}

// RedactHeaders redacts sensitive headers from a header map.
// The original map is not modified; a new map is returned.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	result := make(map[string]string, len(headers))
	for key, value := range headers {
		keyLower := strings.ToLower(key)
		redacted := false
		for _, redactKey := range RedactedHeaders {
			if keyLower == redactKey {
				result[key] = "[REDACTED]"
				redacted = true
				break
			}
		}
		if !redacted {
			result[key] = value
		}
	}
	return result
}

// Config holds audit logging configuration
type Config struct {
	Enabled bool

	// LogBodies enables logging of full request/response bodies
	LogBodies bool

	// LogHeaders enables logging of request/response headers
	LogHeaders bool

	// BufferSize is the capacity of the entry queue
	BufferSize int

	// FlushInterval is how often to flush buffered logs
	FlushInterval time.Duration

	// RetentionDays is how long to keep logs (0 = forever)
	RetentionDays int

	// SkipPaths are request paths never journaled, e.g. /health.
	SkipPaths []string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		LogBodies:     false,
		LogHeaders:    false,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
		SkipPaths:     []string{"/health"},
	}
}

func (c Config) skips(path string) bool {
	for _, p := range c.SkipPaths {
		if p == path {
			return true
		}
	}
	return false
}
