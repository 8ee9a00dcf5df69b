package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/crawler"
)

func newTestServer(t *testing.T) (*Server, *crawler.Stats) {
	t.Helper()
	stats := crawler.NewStats()
	return NewServer(stats, "sess-42", zap.NewNop()), stats
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatusReportsSessionProgress(t *testing.T) {
	t.Parallel()
	srv, stats := newTestServer(t)
	stats.RecordPage(true)
	stats.RecordPage(true)
	stats.RecordPage(false)
	stats.RecordOutcome(crawler.Saved("/tmp/a.jpg", 1))
	stats.RecordRetry()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		SessionID string           `json:"session_id"`
		Stats     crawler.Snapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-42", resp.SessionID)
	assert.Equal(t, 2, resp.Stats.PagesFetched)
	assert.Equal(t, 1, resp.Stats.PagesFailed)
	assert.Equal(t, 1, resp.Stats.ImagesSaved)
	assert.Equal(t, 1, resp.Stats.Retries)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
