package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/server"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
	"github.com/urfave/cli/v3"
)

const pruneInterval = time.Hour

// Serve runs the HTTP server until the process is interrupted.
//
// Missing Spotify credentials are fatal.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()
	if host := cmd.String("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	if cfg.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(cfg.Log.File)
		if err != nil {
			return err
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	proxy, err := r.tokenProxy(ctx, false)
	if err != nil {
		return err
	}
	defer r.closeStore()

	sessions, err := server.NewSessions(cfg.Session.Secret, cfg.Session.TTL, cfg.Server.SecureCookies)
	if err != nil {
		return err
	}
	if sessions.Ephemeral() {
		r.logger.Warn("session.secret is empty; sessions will not survive a restart")
	}

	settings := timer.Settings{FocusMinutes: cfg.Timer.FocusMinutes, BreakMinutes: cfg.Timer.BreakMinutes}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	if sqlite, ok := r.store.(*repositories.SQLiteTokenStore); ok {
		go r.prune(ctx, sqlite, cfg.Session.TTL)
	}

	r.logger.Info("starting tempo", "store", r.cfg().Store.Driver, "metrics", cfg.Server.Metrics)
	app := server.App{
		Proxy:    proxy,
		Sessions: sessions,
		Logger:   r.logger,
		Server:   cfg.Server,
		Timer:    settings,
	}
	return app.Serve(ctx)
}

// prune removes token pairs untouched for longer than the session lifetime.
func (r *Runner) prune(ctx context.Context, store *repositories.SQLiteTokenStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.Prune(ctx, now.Add(-ttl))
			if err != nil {
				r.logger.Warn("failed to prune sessions", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("pruned stale sessions", "count", n)
			}
		}
	}
}
