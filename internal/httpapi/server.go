// Package httpapi serves the Driftmap HTTP surface: the REST API for stored
// conversations, the live session WebSocket, and the operational endpoints
// (health probes and Prometheus metrics).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftmap/driftmap/internal/app"
	"github.com/driftmap/driftmap/internal/health"
	"github.com/driftmap/driftmap/internal/observe"
	"github.com/driftmap/driftmap/pkg/provider/embeddings"
	"github.com/driftmap/driftmap/pkg/store"
)

// Server holds the handlers' dependencies.
type Server struct {
	manager  *app.Manager
	store    store.Store
	embedder embeddings.Provider
	metrics  *observe.Metrics
	health   *health.Handler
}

// Config configures a Server. Manager and Store are required; Embedder is
// needed only for semantic search.
type Config struct {
	Manager  *app.Manager
	Store    store.Store
	Embedder embeddings.Provider
	Metrics  *observe.Metrics
	Health   *health.Handler
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	s := &Server{
		manager:  cfg.Manager,
		store:    cfg.Store,
		embedder: cfg.Embedder,
		metrics:  cfg.Metrics,
		health:   cfg.Health,
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New("")
	}
	return s
}

// Handler returns the full route tree. REST routes run behind the tracing and
// metrics middleware; the WebSocket route is registered outside it because the
// upgrade needs the raw response writer for hijacking. Health and metrics
// endpoints are unwrapped so probes stay cheap.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/conversations", s.handleListConversations)
	api.HandleFunc("GET /api/v1/conversations/{id}/nodes", s.handleListNodes)
	api.HandleFunc("GET /api/v1/conversations/{id}/segments", s.handleListSegments)
	api.HandleFunc("GET /api/v1/conversations/{id}/layout", s.handleLayout)
	api.HandleFunc("GET /api/v1/conversations/{id}/brainwave", s.handleBrainwave)
	api.HandleFunc("POST /api/v1/search/segments", s.handleSearchSegments)

	root := http.NewServeMux()
	root.Handle("/api/v1/", observe.Middleware(s.metrics)(api))
	root.HandleFunc("GET /api/v1/session/ws", s.handleSessionWS)
	root.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(root)
	return root
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeStatus maps a store error to an HTTP status code.
func storeStatus(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
