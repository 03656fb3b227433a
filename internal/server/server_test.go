// file: internal/server/server_test.go
// version: 1.2.0
// guid: 6b7c8d9e-0f1a-4b2c-9d3e-4f5a6b7c8d9e

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	ulid "github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booktrackapp/booktrack/internal/models"
	"github.com/booktrackapp/booktrack/internal/reset"
	"github.com/booktrackapp/booktrack/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer builds a server over a temporary database
func setupTestServer(t *testing.T) (*Server, func()) {
	tmpdir := "/tmp/test_pebble_" + ulid.Make().String()

	manager := storage.NewManager(tmpdir)
	db, err := manager.Open(context.Background())
	require.NoError(t, err, "Failed to open test database")

	engine := storage.NewEngine(db)
	srv := NewServer(engine, reset.NewBroadcaster(engine))

	cleanup := func() {
		srv.Shutdown(context.Background())
		manager.Close()
		os.RemoveAll(tmpdir)
	}
	return srv, cleanup
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestBookLifecycle(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	// Create
	w := doJSON(t, srv, http.MethodPost, "/api/v1/books", models.Book{Title: "Dune", Author: "Frank Herbert"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	// Read
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Update
	created.Data.Author = "F. Herbert"
	w = doJSON(t, srv, http.MethodPut, "/api/v1/books/"+created.Data.ID, created.Data)
	assert.Equal(t, http.StatusOK, w.Code)

	// Delete is soft and returns no content
	w = doJSON(t, srv, http.MethodDelete, "/api/v1/books/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Gone from reads afterwards
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// But recoverable through the deleted listing
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/deleted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, 1, deleted.Count)
}

func TestSaveBookValidationMapsTo400(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/books", models.Book{Title: "", Author: "Nobody"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestGetMissingBookMapsTo404(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodGet, "/api/v1/books/01MISSING", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchSaveIsAtomic(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	books := []models.Book{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "", Author: "Nobody"},
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/books/batch", books)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was persisted
	w = doJSON(t, srv, http.MethodGet, "/api/v1/books/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	assert.Equal(t, 0, count.Count)
}

func TestCollectionLifecycle(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/collections", models.Collection{Name: "Sci-Fi"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/collections/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/collections/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/collections/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	// Defaults before any save
	w := doJSON(t, srv, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings models.UserSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "light", settings.Theme)

	// Save and reload
	settings.Theme = "dark"
	w = doJSON(t, srv, http.MethodPut, "/api/v1/settings", settings)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/settings", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "1", settings.ID)
}

func TestBackupEndpoints(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	doJSON(t, srv, http.MethodPost, "/api/v1/books", models.Book{Title: "Dune", Author: "Frank Herbert"})

	// Create
	w := doJSON(t, srv, http.MethodPost, "/api/v1/backups", map[string]string{"name": "snap"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.BackupRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Data.BookCount)
	assert.Nil(t, created.Data.Data)

	// List
	w = doJSON(t, srv, http.MethodGet, "/api/v1/backups", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Restore
	w = doJSON(t, srv, http.MethodPost, "/api/v1/backups/1/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var restored struct {
		Restored int `json:"restored"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &restored))
	assert.Equal(t, 1, restored.Restored)

	// Restore of a missing backup maps to 404
	w = doJSON(t, srv, http.MethodPost, "/api/v1/backups/999/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Non-integer id maps to 400
	w = doJSON(t, srv, http.MethodPost, "/api/v1/backups/abc/restore", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Delete
	w = doJSON(t, srv, http.MethodDelete, "/api/v1/backups/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestClearRequiresConfirmation(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodPost, "/api/v1/maintenance/clear", map[string]bool{"confirm": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/maintenance/clear", map[string]bool{"confirm": true})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStatsCacheInvalidatedByReset(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	doJSON(t, srv, http.MethodPost, "/api/v1/books", models.Book{Title: "Dune", Author: "Frank Herbert"})

	// Prime the cache
	w := doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.StorageStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Books)

	// The clear broadcast must drop the cached value
	w = doJSON(t, srv, http.MethodPost, "/api/v1/maintenance/clear", map[string]bool{"confirm": true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Books)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	w := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "booktrack_books_saved_total")
}
