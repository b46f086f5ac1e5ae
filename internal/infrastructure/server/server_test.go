package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		App:      config.AppConfig{Version: "test"},
		Storage:  config.StorageConfig{ImagesDir: filepath.Join(dir, "images")},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*", RateLimitRequests: 1000, RateLimitWindow: time.Minute},
		Metrics:  config.MetricsConfig{Enabled: true},
		Calendar: config.CalendarConfig{FeedURLs: "https://one.example/cal.ics, https://two.example/cal.ics", CacheTTL: time.Minute, FetchTimeout: time.Second},
		Settings: config.SettingsConfig{File: filepath.Join(dir, "settings.env")},
		Upload:   config.UploadConfig{MaxBytes: 1 << 20, MaxWidth: 800, Quality: 80},
	}

	srv, err := New(cfg, testutil.NewDB(t), logger.NewNop(), metrics.New())
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/ready", "").Code)

	rec := serve(srv, http.MethodGet, "/health/detailed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database"`)
}

func TestRoutesAreMounted(t *testing.T) {
	srv := newTestServer(t)

	for _, resource := range []string{"memos", "bookmarks", "events", "notebooks", "identities", "credential-groups", "toolbox"} {
		rec := serve(srv, http.MethodGet, "/api/"+resource, "")
		assert.Equal(t, http.StatusOK, rec.Code, resource)
	}

	rec := serve(srv, http.MethodPost, "/api/bookmarks", `{"url":"https://go.dev"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(srv, http.MethodGet, "/api/tasks?date=2024-01-01", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendarSourcesSyncedFromConfig(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.SyncCalendarSources(context.Background()))

	rec := serve(srv, http.MethodGet, "/api/calendar/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sources []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sources))
	require.Len(t, sources, 2)

	id := sources[0]["id"].(string)
	assert.Equal(t, http.StatusForbidden, serve(srv, http.MethodDelete, "/api/calendar/sources/"+id, "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	serve(srv, http.MethodGet, "/health", "")

	rec := serve(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"}`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
