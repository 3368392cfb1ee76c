// Package server exposes the HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/server/handler"
	"github.com/valoriste/valoriste/internal/server/middleware"
	"github.com/valoriste/valoriste/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per client IP within RateWindow. Zero disables the
	// rate-limiting middleware.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers. Archives is
// optional and only registered when blob storage is configured.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Users    *handler.UsersHandler
	Deals    *handler.DealsHandler
	Auth     *handler.AuthHandler
	Archives *handler.ArchivesHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wires the middleware chain: auth, then
// request logging, then CORS, with rate limiting outermost when configured.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.Health)

	mux.HandleFunc("GET /api/status", handlers.Status.Status)

	mux.HandleFunc("GET /api/users", handlers.Users.List)
	mux.HandleFunc("GET /api/users/{id}", handlers.Users.Get)

	mux.HandleFunc("GET /api/deals/{userID}", handlers.Deals.ForUser)

	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/archives/{userID}", handlers.Archives.List)
		mux.HandleFunc("GET /api/archives/{userID}/{date}/{scanID}", handlers.Archives.Get)
	}

	// Interactive OAuth consent flow.
	mux.HandleFunc("GET /api/auth/url", handlers.Auth.URL)
	mux.HandleFunc("GET /api/auth/callback", handlers.Auth.Callback)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/api/auth/callback")(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window, logger)(h)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
