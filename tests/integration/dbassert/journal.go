//go:build integration

// Package dbassert provides database assertion helpers for integration tests.
// It supports querying and validating request journal entries in PostgreSQL and MongoDB.
package dbassert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"todomanager/internal/auditlog"
)

// JournalEntry mirrors auditlog.LogEntry for test assertions.
type JournalEntry struct {
	ID         string
	Timestamp  time.Time
	DurationNs int64
	Method     string
	Path       string
	Route      string
	StatusCode int
	RequestID  string
	ClientIP   string
	Data       *auditlog.LogData
}

// ExpectedEntry contains expected values for journal assertions.
// Zero values are not checked, allowing partial matching.
type ExpectedEntry struct {
	Method     string
	Path       string
	Route      string
	StatusCode int
	RequestID  string
	EntityKind string
	ErrorType  string
}

// QueryJournalByRequestID queries journal entries by request ID from PostgreSQL.
func QueryJournalByRequestID(t *testing.T, pool *pgxpool.Pool, requestID string) []JournalEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		SELECT id, timestamp, duration_ns, method, path, route, status_code,
		       request_id, client_ip, data
		FROM request_journal
		WHERE request_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := pool.Query(ctx, query, requestID)
	require.NoError(t, err, "failed to query request journal")
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var dataJSON []byte
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.DurationNs,
			&entry.Method, &entry.Path, &entry.Route, &entry.StatusCode,
			&entry.RequestID, &entry.ClientIP, &dataJSON,
		)
		require.NoError(t, err, "failed to scan journal row")

		if dataJSON != nil {
			var data auditlog.LogData
			require.NoError(t, json.Unmarshal(dataJSON, &data), "failed to unmarshal journal data")
			entry.Data = &data
		}
		entries = append(entries, entry)
	}
	require.NoError(t, rows.Err(), "error iterating journal rows")

	return entries
}

// QueryJournalByRequestIDMongo queries journal entries by request ID from MongoDB.
func QueryJournalByRequestIDMongo(t *testing.T, db *mongo.Database, requestID string) []JournalEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := db.Collection("request_journal").Find(ctx, bson.M{"request_id": requestID})
	require.NoError(t, err, "failed to query request journal from MongoDB")
	defer cursor.Close(ctx)

	var entries []JournalEntry
	for cursor.Next(ctx) {
		var doc auditlog.LogEntry
		require.NoError(t, cursor.Decode(&doc), "failed to decode journal document")
		entries = append(entries, JournalEntry{
			ID:         doc.ID,
			Timestamp:  doc.Timestamp,
			DurationNs: doc.DurationNs,
			Method:     doc.Method,
			Path:       doc.Path,
			Route:      doc.Route,
			StatusCode: doc.StatusCode,
			RequestID:  doc.RequestID,
			ClientIP:   doc.ClientIP,
			Data:       doc.Data,
		})
	}
	require.NoError(t, cursor.Err(), "error iterating journal cursor")

	return entries
}

// AssertFieldCompleteness verifies that all required fields are populated.
func AssertFieldCompleteness(t *testing.T, entry JournalEntry) {
	t.Helper()

	assert.NotEmpty(t, entry.ID, "journal ID should not be empty")
	assert.False(t, entry.Timestamp.IsZero(), "journal timestamp should not be zero")
	assert.NotZero(t, entry.StatusCode, "journal status code should not be zero")
	assert.NotEmpty(t, entry.Method, "journal method should not be empty")
	assert.NotEmpty(t, entry.Path, "journal path should not be empty")
	assert.Positive(t, entry.DurationNs, "journal duration should be positive")
}

// AssertEntryMatches checks the non-zero fields of expected against entry.
func AssertEntryMatches(t *testing.T, expected ExpectedEntry, entry JournalEntry) {
	t.Helper()

	if expected.Method != "" {
		assert.Equal(t, expected.Method, entry.Method, "method mismatch")
	}
	if expected.Path != "" {
		assert.Equal(t, expected.Path, entry.Path, "path mismatch")
	}
	if expected.Route != "" {
		assert.Equal(t, expected.Route, entry.Route, "route mismatch")
	}
	if expected.StatusCode != 0 {
		assert.Equal(t, expected.StatusCode, entry.StatusCode, "status code mismatch")
	}
	if expected.RequestID != "" {
		assert.Equal(t, expected.RequestID, entry.RequestID, "request ID mismatch")
	}
	if expected.EntityKind != "" || expected.ErrorType != "" {
		require.NotNil(t, entry.Data, "journal data should not be nil")
	}
	if expected.EntityKind != "" {
		assert.Equal(t, expected.EntityKind, entry.Data.EntityKind, "entity kind mismatch")
	}
	if expected.ErrorType != "" {
		assert.Equal(t, expected.ErrorType, entry.Data.ErrorType, "error type mismatch")
	}
}

// AssertHasBodies checks whether request and response bodies were captured.
func AssertHasBodies(t *testing.T, entry JournalEntry, wantRequest, wantResponse bool) {
	t.Helper()
	require.NotNil(t, entry.Data, "journal data should not be nil")

	if wantRequest {
		assert.NotNil(t, entry.Data.RequestBody, "request body should be logged")
	} else {
		assert.Nil(t, entry.Data.RequestBody, "request body should not be logged")
	}
	if wantResponse {
		assert.NotNil(t, entry.Data.ResponseBody, "response body should be logged")
	} else {
		assert.Nil(t, entry.Data.ResponseBody, "response body should not be logged")
	}
}

// AssertHasHeaders checks whether request and response headers were captured.
func AssertHasHeaders(t *testing.T, entry JournalEntry, want bool) {
	t.Helper()
	require.NotNil(t, entry.Data, "journal data should not be nil")

	if want {
		assert.NotEmpty(t, entry.Data.RequestHeaders, "request headers should be logged")
		assert.NotEmpty(t, entry.Data.ResponseHeaders, "response headers should be logged")
	} else {
		assert.Empty(t, entry.Data.RequestHeaders, "request headers should not be logged")
		assert.Empty(t, entry.Data.ResponseHeaders, "response headers should not be logged")
	}
}
