package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SQLite limits a statement to 999 bound parameters, so large batches are
// split into chunks of maxEntriesPerBatch rows.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 10
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry
)

// SQLiteStore implements LogStore for SQLite databases.
type SQLiteStore struct {
	db        *sql.DB
	retention *retention
}

// NewSQLiteStore creates the request_journal table and its indexes, and
// starts the retention loop when retentionDays is positive.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS request_journal (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			duration_ns INTEGER DEFAULT 0,
			method TEXT,
			path TEXT,
			route TEXT,
			status_code INTEGER DEFAULT 0,
			request_id TEXT,
			client_ip TEXT,
			data JSON
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create request_journal table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON request_journal(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_journal_status ON request_journal(status_code)",
		"CREATE INDEX IF NOT EXISTS idx_journal_route ON request_journal(route)",
		"CREATE INDEX IF NOT EXISTS idx_journal_request_id ON request_journal(request_id)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &SQLiteStore{db: db}
	store.retention = newRetention(retentionDays, store.cleanup)
	return store, nil
}

// WriteBatch inserts entries, ignoring ids that already exist.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		chunk := entries[i:min(i+maxEntriesPerBatch, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerEntry)
		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.Timestamp.UTC().Format(time.RFC3339Nano),
				e.DurationNs,
				e.Method,
				e.Path,
				e.Route,
				e.StatusCode,
				e.RequestID,
				e.ClientIP,
				dataColumn(e),
			)
		}

		query := `INSERT OR IGNORE INTO request_journal (id, timestamp, duration_ns, method, path, route,
			status_code, request_id, client_ip, data) VALUES ` + strings.Join(placeholders, ",")

		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert journal batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}
	return nil
}

// dataColumn encodes Data as JSON text, or nil for SQL NULL.
func dataColumn(e *LogEntry) any {
	if e.Data == nil {
		return nil
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		slog.Warn("failed to marshal journal data", "error", err, "id", e.ID)
		return nil
	}
	return string(b)
}

// Flush is a no-op for SQLite as writes are synchronous.
func (s *SQLiteStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the retention loop. The database belongs to the storage layer.
func (s *SQLiteStore) Close() error {
	s.retention.Close()
	return nil
}

func (s *SQLiteStore) cleanup() {
	cutoff := s.retention.cutoff().Format(time.RFC3339Nano)

	result, err := s.db.Exec("DELETE FROM request_journal WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to clean up request journal", "error", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up request journal", "deleted", n)
	}
}
