// Package api exposes the HTTP status surface for a running crawl.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/imgcrawl/imgcrawl/internal/crawler"
)

// Server serves liveness, progress, and Prometheus metrics endpoints
// while a crawl session runs.
type Server struct {
	router    chi.Router
	stats     *crawler.Stats
	sessionID string
	started   time.Time
	logger    *zap.Logger
}

// NewServer constructs a Server bound to one session's stats.
func NewServer(stats *crawler.Stats, sessionID string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		stats:     stats,
		sessionID: sessionID,
		started:   time.Now().UTC(),
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Debug("write healthz response", zap.Error(err))
	}
}

type statusResponse struct {
	SessionID string           `json:"session_id"`
	StartedAt time.Time        `json:"started_at"`
	Stats     crawler.Snapshot `json:"stats"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := statusResponse{
		SessionID: s.sessionID,
		StartedAt: s.started,
		Stats:     s.stats.Snapshot(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode status response", zap.Error(err))
	}
}
