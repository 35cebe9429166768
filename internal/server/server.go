// Package server exposes range resolution, sweeps and history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/internal/rangeping"
	"github.com/HerbHall/rangeping/internal/sites"
	"github.com/HerbHall/rangeping/internal/version"
)

// Server is the rangeping HTTP API.
type Server struct {
	httpServer *http.Server
	engine     *rangeping.Engine
	sites      *sites.Inventory
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithSites lets requests name a site from the inventory instead of an
// address block.
func WithSites(inv *sites.Inventory) Option {
	return func(s *Server) { s.sites = inv }
}

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a new Server instance.
func New(addr string, engine *rangeping.Engine, logger *zap.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 15 * time.Second,
			// No WriteTimeout: a sweep response is written when the sweep
			// ends, which can take minutes on a large block.
			IdleTimeout: 60 * time.Second,
		},
		engine:   engine,
		gatherer: prometheus.DefaultGatherer,
		logger:   logger,
		mux:      mux,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/sites", s.handleSites)
	s.mux.HandleFunc("GET /api/v1/ranges/{id}", s.handleGetRange)
	s.mux.HandleFunc("POST /api/v1/ranges", s.handleResolveRange)
	s.mux.HandleFunc("POST /api/v1/sweeps", s.handleSweep)
	s.mux.HandleFunc("GET /api/v1/sweeps/stream", s.handleSweepStream)
	s.mux.HandleFunc("GET /api/v1/history", s.handleHistoryList)
	s.mux.HandleFunc("GET /api/v1/history/{id}", s.handleHistory)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rangeping",
		"version": version.Map(),
	})
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request) {
	type siteResponse struct {
		ID    string `json:"id"`
		Range string `json:"range"`
		Notes string `json:"notes,omitempty"`
	}
	ids := s.sites.IDs()
	out := make([]siteResponse, 0, len(ids))
	for _, id := range ids {
		site, _ := s.sites.Lookup(id)
		spec, mask := site.Spec()
		if mask != "" {
			spec += "/" + mask
		}
		out = append(out, siteResponse{ID: id, Range: spec, Notes: site.Notes})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Rangeping-Version", version.Short())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
