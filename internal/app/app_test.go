package app

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	_ "modernc.org/sqlite"

	"todomanager/config"
)

func loadConfig(t *testing.T) *config.LoadResult {
	t.Helper()
	t.Chdir(t.TempDir())
	result, err := config.LoadFile("")
	require.NoError(t, err)
	return result
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{AppConfig: &config.LoadResult{}})
	assert.Error(t, err)
}

func TestNewSeededStore(t *testing.T) {
	result := loadConfig(t)

	a, err := New(context.Background(), Config{AppConfig: result})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "categories.#").Int())
	assert.Equal(t, 2, a.Store().Stats().Entities["todo"])
}

func TestNewUnseededStrictStore(t *testing.T) {
	result := loadConfig(t)
	result.Config.Store.Seed = false
	result.Config.Compat.LenientCategoryRelations = false

	a, err := New(context.Background(), Config{AppConfig: result})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/1/todos", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditJournalToSQLite(t *testing.T) {
	result := loadConfig(t)
	cfg := result.Config
	cfg.Audit.Enabled = true
	cfg.Audit.FlushInterval = 1
	cfg.Storage.Type = "sqlite"
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	cfg.Storage.SQLite.Path = dbPath

	a, err := New(context.Background(), Config{AppConfig: result})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"journaled"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx), "shutdown drains the journal")
	require.NoError(t, a.Shutdown(ctx), "second shutdown is a no-op")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var route string
	var status int
	require.NoError(t, db.QueryRow(`SELECT route, status_code FROM request_journal`).Scan(&route, &status))
	assert.Equal(t, "/todos", route)
	assert.Equal(t, http.StatusCreated, status)
}
