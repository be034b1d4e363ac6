//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"todomanager/config"
	"todomanager/internal/app"
)

// TestServerConfig holds configuration options for setting up a test server.
type TestServerConfig struct {
	// DBType is the storage backend for the request journal: "postgresql" or "mongodb".
	DBType string

	AuditLogEnabled bool
	LogBodies       bool
	LogHeaders      bool

	// Strict disables the lenient category relation behavior.
	Strict bool
}

// TestServerFixture holds all resources for a running test server.
type TestServerFixture struct {
	ServerURL string
	App       *app.App
	PgPool    *pgxpool.Pool
	MongoDb   *mongo.Database
	DBType    string
}

// SetupTestServer starts the full application on a loopback port and
// registers its shutdown with t.Cleanup.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	application, err := app.New(context.Background(), app.Config{
		AppConfig: buildAppConfig(t, cfg, port),
	})
	require.NoError(t, err, "failed to create app")

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	go func() {
		_ = application.Start(addr)
	}()

	serverURL := "http://" + addr
	require.NoError(t, waitForServer(serverURL+"/health"), "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL: serverURL,
		App:       application,
		DBType:    cfg.DBType,
	}
	switch cfg.DBType {
	case "postgresql":
		fixture.PgPool = GetPostgreSQLPool()
	case "mongodb":
		fixture.MongoDb = GetMongoDatabase()
	}

	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// FlushAndClose shuts the app down, which flushes pending journal entries.
// Call this before making any DB assertions.
func (f *TestServerFixture) FlushAndClose(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, f.App.Shutdown(ctx), "failed to shutdown app")
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		_ = f.App.Shutdown(ctx)
	}
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, port int) *config.LoadResult {
	t.Helper()

	appCfg := &config.Config{
		Server: config.ServerConfig{
			Port:          fmt.Sprintf("%d", port),
			BodySizeLimit: "1M",
		},
		Store: config.StoreConfig{
			Seed: true,
		},
		Compat: config.CompatConfig{
			LenientCategoryRelations: !cfg.Strict,
		},
		Log: config.LogConfig{
			Format: "json",
			Level:  "info",
		},
		Audit: config.AuditConfig{
			Enabled:       cfg.AuditLogEnabled,
			LogBodies:     cfg.LogBodies,
			LogHeaders:    cfg.LogHeaders,
			BufferSize:    100,
			FlushInterval: 1,
			RetentionDays: 0,
		},
	}

	switch cfg.DBType {
	case "postgresql":
		appCfg.Storage = config.StorageConfig{
			Type: "postgresql",
			PostgreSQL: config.PostgreSQLConfig{
				URL:      GetPostgreSQLURL(),
				MaxConns: 5,
			},
		}
	case "mongodb":
		appCfg.Storage = config.StorageConfig{
			Type: "mongodb",
			MongoDB: config.MongoDBConfig{
				URL:      GetMongoURL(),
				Database: "todomanager_test",
			},
		}
	default:
		t.Fatalf("unsupported DB type: %s", cfg.DBType)
	}

	return &config.LoadResult{Config: appCfg}
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
