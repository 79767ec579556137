// Package core provides the HTTP chassis for the weatheralert operations API.
// It builds a chi router, applies the cross-cutting middleware (panic
// recovery, request IDs, timeouts, logging) and hosts the health endpoint.
// Domain handlers attach themselves through V1RouteRegistrars.
package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weatheralert/internal/config"
)

// Server holds the dependencies shared by every route.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. They are populated
	// by the entry point so that core does not import handler packages.
	V1RouteRegistrars []func(chi.Router)

	// RequestTimeout bounds every request context. Zero uses the default.
	RequestTimeout time.Duration

	router *chi.Mux
}

// NewServer validates its inputs and prepares an empty router. Callers
// register probes and route registrars, then call MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}
