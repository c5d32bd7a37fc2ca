package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/api/handler"
	mw "github.com/edvin/commerce-messaging/internal/api/middleware"
	"github.com/edvin/commerce-messaging/internal/config"
)

// Gateway is the workflow gateway served over HTTP.
type Gateway interface {
	handler.Gateway
	Ready(ctx context.Context) error
}

type Server struct {
	router  chi.Router
	logger  zerolog.Logger
	gateway Gateway
	cfg     *config.Config
}

func NewServer(logger zerolog.Logger, gw Gateway, cfg *config.Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger,
		gateway: gw,
		cfg:     cfg,
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
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReadyz)

	wf := handler.NewWorkflow(s.gateway)
	s.router.Group(func(r chi.Router) {
		r.Use(mw.Auth(s.cfg.APIKeyHashes))
		r.Post("/workflows/{type}", wf.Start)
		r.Get("/workflows/{id}", wf.Get)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"gateway": "ok"}
	status := http.StatusOK
	if err := s.gateway.Ready(ctx); err != nil {
		checks["gateway"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
