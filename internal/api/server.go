// Package api provides the HTTP server of the big red button.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/redbutton/internal/api/handlers"
	"github.com/narvanalabs/redbutton/internal/api/health"
	"github.com/narvanalabs/redbutton/internal/api/middleware"
	"github.com/narvanalabs/redbutton/internal/auth"
	"github.com/narvanalabs/redbutton/internal/metrics"
	"github.com/narvanalabs/redbutton/pkg/config"
)

// Version is the current version of the server.
// This should be set at build time using ldflags.
var Version = "dev"

// Dependencies are the collaborators the server routes to.
type Dependencies struct {
	Builds        handlers.BuildController
	Authenticator *auth.Authenticator
	Login         handlers.LoginService
	Health        *health.Checker
}

// Server represents the HTTP server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Dependencies
	config     *config.Config
	logger     *slog.Logger
}

// NewServer creates a new server with the given dependencies.
func NewServer(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()
	render := handlers.NewRenderer(s.logger)

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger, render.APIError))
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(auth.Bridge(s.config.Auth.CookieName))

	r.NotFound(render.NotFound)
	r.MethodNotAllowed(render.MethodNotAllowed)

	// Operational endpoints (no auth required)
	if s.deps.Health != nil {
		r.Get("/health", s.deps.Health.Handler())
	}
	r.Handle("/metrics", metrics.Handler())

	cookies := auth.SessionCookies{
		Name:   s.config.Auth.CookieName,
		Domain: s.config.Auth.SiteDomain,
		Secure: !s.config.IsDevelopment(),
	}
	authHandler := handlers.NewAuthHandler(s.deps.Login, cookies, render, s.logger)
	r.Get("/login", authHandler.Login)
	r.Get("/login/callback", authHandler.Callback)
	r.Get("/logout", authHandler.Logout)

	buildHandler := handlers.NewBuildHandler(s.deps.Builds, render, s.logger)
	r.With(s.deps.Authenticator.TryAuthenticate).Get("/", buildHandler.Index)

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Authenticator.RequireAuthenticated(render.Unauthorized))
		r.Post("/new-build", buildHandler.NewBuild)
		r.Get("/last", buildHandler.Last)
		r.Route("/build/{slug}", func(r chi.Router) {
			r.Get("/", buildHandler.Show)
			r.Post("/abort", buildHandler.Abort)
		})
	})

	s.router = r
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.ListenAddr()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting web server", "addr", addr, "version", Version)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down web server", "timeout", s.config.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
