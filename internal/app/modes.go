package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valoriste/valoriste/internal/server"
	"github.com/valoriste/valoriste/internal/server/handler"
	"github.com/valoriste/valoriste/internal/server/ws"
)

// ServerMode runs the HTTP API and WebSocket hub without the periodic
// scanner. Scans still happen on demand through the deals endpoint.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ScanMode runs one scan pass over every user and exits. Useful for cron
// driven deployments.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	return deps.Scanner.ScanAll(ctx)
}

// MonitorMode runs the periodic scanner with notifications but no HTTP
// surface.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return deps.Scanner.Run(ctx)
}

// FullMode runs every subsystem: the HTTP API, the WebSocket hub, and the
// periodic scanner.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps)

	if a.cfg.Scanner.Enabled {
		g.Go(func() error {
			return deps.Scanner.Run(ctx)
		})
	}

	return g.Wait()
}

// startHTTPServer registers the API routes, starts the WebSocket hub when a
// signal bus is available, and runs the server until ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	pingers := make(map[string]handler.Pinger)
	if deps.Postgres != nil {
		pingers["postgres"] = deps.Postgres
	}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(pingers),
		Status: handler.NewStatusHandler(a.cfg.Mode, deps.TokenManager, deps.Users, deps.DealStore),
		Users:  handler.NewUsersHandler(deps.Users),
		Deals:  handler.NewDealsHandler(deps.Deals, deps.DealStore),
		Auth:   handler.NewAuthHandler(deps.TokenManager),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchivesHandler(deps.BlobReader)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimitPerMin,
		RateWindow:  time.Minute,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
