package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestSQLiteConcurrentWriteSafety(t *testing.T) {
	store, err := NewSQLite(context.Background(), SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create SQLite storage: %v", err)
	}
	defer store.Close()

	db := store.SQLiteDB()

	// Two tables written from many goroutines at once, like the journal and
	// its cleanup loop sharing one connection.
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_journal (id TEXT PRIMARY KEY, data TEXT)`)
	if err != nil {
		t.Fatalf("failed to create test_journal table: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS test_other (id TEXT PRIMARY KEY, data TEXT)`)
	if err != nil {
		t.Fatalf("failed to create test_other table: %v", err)
	}

	const goroutines = 10
	const insertsPerGoroutine = 50

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*insertsPerGoroutine*2)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			table := "test_journal"
			if id%2 == 1 {
				table = "test_other"
			}
			for j := 0; j < insertsPerGoroutine; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, err := db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, table),
					fmt.Sprintf("%d-%d", id, j), "payload")
				cancel()
				if err != nil {
					errs <- fmt.Errorf("goroutine %d insert %d into %s: %w", id, j, table, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent write error: %v", err)
	}

	var journalCount, otherCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_journal").Scan(&journalCount); err != nil {
		t.Fatalf("failed to count journal rows: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM test_other").Scan(&otherCount); err != nil {
		t.Fatalf("failed to count other rows: %v", err)
	}

	expectedPerTable := (goroutines / 2) * insertsPerGoroutine
	if journalCount != expectedPerTable {
		t.Errorf("test_journal: got %d rows, want %d", journalCount, expectedPerTable)
	}
	if otherCount != expectedPerTable {
		t.Errorf("test_other: got %d rows, want %d", otherCount, expectedPerTable)
	}
}

func TestSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	store, err := NewSQLite(context.Background(), SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if store.PostgreSQLPool() != nil || store.MongoDatabase() != nil {
		t.Error("only the SQLite accessor should return a connection")
	}
}

func TestNew(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		store, err := New(context.Background(), Config{
			Type:   TypeSQLite,
			SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "journal.db")},
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer store.Close()
		if store.Type() != TypeSQLite {
			t.Errorf("Type() = %q, want %q", store.Type(), TypeSQLite)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := New(context.Background(), Config{Type: "redis"}); err == nil {
			t.Error("expected error for unknown storage type")
		}
	})

	t.Run("postgresql without url", func(t *testing.T) {
		if _, err := New(context.Background(), Config{Type: TypePostgreSQL}); err == nil {
			t.Error("expected error when PostgreSQL URL is empty")
		}
	})

	t.Run("mongodb without url", func(t *testing.T) {
		if _, err := New(context.Background(), Config{Type: TypeMongoDB}); err == nil {
			t.Error("expected error when MongoDB URL is empty")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Type != TypeSQLite {
		t.Errorf("Type = %q, want %q", cfg.Type, TypeSQLite)
	}
	if cfg.SQLite.Path != DefaultSQLitePath {
		t.Errorf("SQLite.Path = %q, want %q", cfg.SQLite.Path, DefaultSQLitePath)
	}
	if cfg.PostgreSQL.MaxConns != DefaultMaxConns {
		t.Errorf("PostgreSQL.MaxConns = %d, want %d", cfg.PostgreSQL.MaxConns, DefaultMaxConns)
	}
	if cfg.MongoDB.Database != DefaultMongoDatabase {
		t.Errorf("MongoDB.Database = %q, want %q", cfg.MongoDB.Database, DefaultMongoDatabase)
	}
}
