package auditlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todomanager/config"
	"todomanager/internal/storage"
)

// Result holds the initialized audit logger and its dependencies.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Logger  LoggerInterface
	Storage storage.Storage
}

// Close releases all resources held by the audit logger.
// Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		r.Storage = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New opens the configured storage and returns a running Logger. When the
// journal is disabled it returns a NoopLogger and no storage.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Audit.Enabled {
		return &Result{Logger: &NoopLogger{}}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	logStore, err := NewLogStore(ctx, store, cfg.Audit.RetentionDays)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Result{
		Logger:  NewLogger(logStore, buildLoggerConfig(cfg)),
		Storage: store,
	}, nil
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	return storage.Config{
		Type: cfg.Type,
		SQLite: storage.SQLiteConfig{
			Path: cfg.SQLite.Path,
		},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.PostgreSQL.URL,
			MaxConns: cfg.PostgreSQL.MaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.MongoDB.URL,
			Database: cfg.MongoDB.Database,
		},
	}
}

// NewLogStore creates the LogStore matching the backend of store.
func NewLogStore(ctx context.Context, store storage.Storage, retentionDays int) (LogStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(cfg *config.Config) Config {
	out := DefaultConfig()
	out.Enabled = cfg.Audit.Enabled
	out.LogBodies = cfg.Audit.LogBodies
	out.LogHeaders = cfg.Audit.LogHeaders
	out.RetentionDays = cfg.Audit.RetentionDays
	if cfg.Audit.BufferSize > 0 {
		out.BufferSize = cfg.Audit.BufferSize
	}
	if cfg.Audit.FlushInterval > 0 {
		out.FlushInterval = time.Duration(cfg.Audit.FlushInterval) * time.Second
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Endpoint != "" {
		out.SkipPaths = append(out.SkipPaths, cfg.Metrics.Endpoint)
	}
	return out
}
