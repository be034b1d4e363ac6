// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the todo manager server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"todomanager/config"
	"todomanager/internal/auditlog"
	"todomanager/internal/codec"
	"todomanager/internal/observability"
	"todomanager/internal/server"
	"todomanager/internal/store"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config *config.Config
	store  *store.Store
	audit  *auditlog.Result
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration produced by config.Load.
	AppConfig *config.LoadResult
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}

	if cfg.AppConfig.Config == nil {
		return nil, fmt.Errorf("app config contains nil Config")
	}

	appCfg := cfg.AppConfig.Config

	app := &App{
		config: appCfg,
	}

	storeOpts := store.Options{
		LenientCategoryRelations: appCfg.Compat.LenientCategoryRelations,
	}
	var observer *observability.StoreObserver
	if appCfg.Metrics.Enabled {
		observer = observability.NewStoreObserver()
		storeOpts.Observer = observer
	}
	app.store = store.New(storeOpts)
	if appCfg.Store.Seed {
		if err := app.store.Seed(); err != nil {
			return nil, fmt.Errorf("failed to seed store: %w", err)
		}
	}
	if observer != nil {
		observer.Refresh(app.store.Stats())
	}

	validator, err := codec.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile body schemas: %w", err)
	}

	// Initialize the request journal
	auditResult, err := auditlog.New(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logging: %w", err)
	}
	app.audit = auditResult

	// Log configuration status
	app.logStartupInfo(cfg.AppConfig.Path)

	serverCfg := &server.Config{
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.BodySizeLimitBytes(),
		Compression:     appCfg.Server.Compression,
		SwaggerEnabled:  appCfg.Server.SwaggerEnabled,
		AuditLogger:     auditResult.Logger,
	}
	if auditResult.Storage != nil {
		serverCfg.JournalStorage = auditResult.Storage
	}
	app.server = server.New(app.store, validator, serverCfg)

	return app, nil
}

// Store returns the entity store.
func (a *App) Store() *store.Store {
	return a.store
}

// AuditLogger returns the audit logger interface.
func (a *App) AuditLogger() auditlog.LoggerInterface {
	if a.audit == nil {
		return nil
	}
	return a.audit.Logger
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first so no new requests are journaled, then the audit
// logger, which flushes pending entries.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every step and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Error("audit logger close error", "error", err)
			errs = append(errs, fmt.Errorf("audit close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo(configPath string) {
	cfg := a.config

	if configPath != "" {
		slog.Info("configuration loaded", "path", configPath)
	}

	stats := a.store.Stats()
	slog.Info("entity store ready",
		"seeded", cfg.Store.Seed,
		"todos", stats.Entities["todo"],
		"projects", stats.Entities["project"],
		"categories", stats.Entities["category"],
		"lenient_category_relations", cfg.Compat.LenientCategoryRelations,
	)

	if cfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}

	// Metrics configuration
	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	// Audit logging configuration
	if cfg.Audit.Enabled {
		slog.Info("audit logging enabled",
			"storage_type", cfg.Storage.Type,
			"log_bodies", cfg.Audit.LogBodies,
			"log_headers", cfg.Audit.LogHeaders,
			"retention_days", cfg.Audit.RetentionDays,
		)
	} else {
		slog.Info("audit logging disabled")
	}
}
