package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements LogStore for PostgreSQL databases.
type PostgreSQLStore struct {
	pool      *pgxpool.Pool
	retention *retention
}

const insertJournalSQL = `
	INSERT INTO request_journal (id, timestamp, duration_ns, method, path, route,
		status_code, request_id, client_ip, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`

// NewPostgreSQLStore creates the request_journal table and its indexes, and
// starts the retention loop when retentionDays is positive.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS request_journal (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			duration_ns BIGINT DEFAULT 0,
			method TEXT,
			path TEXT,
			route TEXT,
			status_code INTEGER DEFAULT 0,
			request_id TEXT,
			client_ip TEXT,
			data JSONB
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create request_journal table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON request_journal(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_journal_status ON request_journal(status_code)",
		"CREATE INDEX IF NOT EXISTS idx_journal_route ON request_journal(route)",
		"CREATE INDEX IF NOT EXISTS idx_journal_data_gin ON request_journal USING GIN (data)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	store := &PostgreSQLStore{pool: pool}
	store.retention = newRetention(retentionDays, store.cleanup)
	return store, nil
}

// WriteBatch sends all inserts in one pgx batch inside a transaction.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		var data []byte
		if e.Data != nil {
			var err error
			data, err = json.Marshal(e.Data)
			if err != nil {
				slog.Warn("failed to marshal journal data", "error", err, "id", e.ID)
				data = nil
			}
		}
		batch.Queue(insertJournalSQL,
			e.ID, e.Timestamp, e.DurationNs, e.Method, e.Path, e.Route,
			e.StatusCode, e.RequestID, e.ClientIP, data)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert journal batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Flush is a no-op for PostgreSQL as writes are synchronous.
func (s *PostgreSQLStore) Flush(_ context.Context) error {
	return nil
}

// Close stops the retention loop. The pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	s.retention.Close()
	return nil
}

func (s *PostgreSQLStore) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.pool.Exec(ctx, "DELETE FROM request_journal WHERE timestamp < $1", s.retention.cutoff())
	if err != nil {
		slog.Error("failed to clean up request journal", "error", err)
		return
	}
	if result.RowsAffected() > 0 {
		slog.Info("cleaned up request journal", "deleted", result.RowsAffected())
	}
}
