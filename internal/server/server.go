// Package server exposes the operational HTTP surface: liveness, venue
// health, the latest ranked signals, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port int
}

// SignalsFunc returns the most recently ranked signals, newest cycle only.
type SignalsFunc func() []domain.OpportunitySignal

// Server is the ops HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	source  domain.SnapshotSource
	venues  []domain.VenueInfo
	signals SignalsFunc
}

// New creates a Server with all routes registered.
func New(cfg Config, source domain.SnapshotSource, venues []domain.VenueInfo, signals SignalsFunc, logger *slog.Logger) *Server {
	s := &Server{
		logger:  logger.With(slog.String("component", "server")),
		source:  source,
		venues:  venues,
		signals: signals,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/signals", s.handleSignals)
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. It blocks until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status string          `json:"status"`
	Venues map[string]bool `json:"venues"`
}

// handleHealth reports per-venue feed liveness. The process is "degraded"
// when fewer than two venues are healthy, since no spatial spread can be
// detected on a single book.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Venues: make(map[string]bool, len(s.venues)),
	}
	healthy := 0
	for _, v := range s.venues {
		ok := s.source.IsHealthy(v.ID)
		resp.Venues[v.ID] = ok
		if ok {
			healthy++
		}
	}
	if healthy < 2 {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	signals := s.signals()
	if signals == nil {
		signals = []domain.OpportunitySignal{}
	}
	writeJSON(w, http.StatusOK, signals)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
