package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/api/handler"
	mw "github.com/edvin/gamehost/internal/api/middleware"
	"github.com/edvin/gamehost/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	registry core.Registry
	orch     *core.Orchestrator
	pool     *pgxpool.Pool
}

// NewServer wires the HTTP surface. pool may be nil when the registry
// is not backed by Postgres; readiness then reports only the process.
func NewServer(logger zerolog.Logger, registry core.Registry, orch *core.Orchestrator, pool *pgxpool.Pool) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		registry: registry,
		orch:     orch,
		pool:     pool,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Tenant)

		// Backups
		backup := handler.NewBackup(s.orch, s.registry)
		r.Get("/servers/{serverID}/backups", backup.ListByServer)
		r.Post("/servers/{serverID}/backups", backup.Create)
		r.Get("/backups/{id}", backup.Get)
		r.Delete("/backups/{id}", backup.Delete)
		r.Post("/backups/{id}/restore", backup.Restore)

		// Schedules
		schedule := handler.NewSchedule(s.registry)
		r.Get("/servers/{serverID}/backup-schedule", schedule.Get)
		r.Put("/servers/{serverID}/backup-schedule", schedule.Set)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["db"] = err.Error()
			healthy = false
		} else {
			checks["db"] = "ok"
		}
	} else {
		checks["db"] = "not configured"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
