package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snapcircle/internal/config"
)

// RouteRegistrar mounts a handler's routes onto a router. Domain handlers
// implement this so the composition root can mount them without the api
// package importing the handlers package.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Server encapsulates the router and cross-cutting dependencies of the HTTP
// API, allowing injection during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	router *chi.Mux
}

// NewServer initializes the router and middleware chain. The caller mounts
// domain routes via MountRoutes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}

	return s, nil
}

// MountRoutes registers the global middleware chain, the health endpoint, and
// the authenticated v1 route group. Ordering: recoverer outermost, then
// request ID, request logging, and auth before any domain handler.
func (s *Server) MountRoutes(registrars ...RouteRegistrar) {
	s.router.Use(Recoverer(s.Logger))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Get("/health", s.HandleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(s.Config.Auth.JWTSecret))
		for _, reg := range registrars {
			reg.RegisterRoutes(r)
		}
	})
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HandleHealth reports process liveness. It is unauthenticated.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"status": "ok"}})
}
