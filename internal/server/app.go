package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/metrics"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
	"github.com/desertthunder/tempo/internal/web"
)

// App holds the dependencies of the HTTP surface.
type App struct {
	Proxy    *services.TokenProxy
	Sessions *Sessions
	Logger   *log.Logger
	Server   shared.ServerConfig
	Timer    timer.Settings
}

// Handler assembles the router:
//
//	GET  /login, /callback, /current-track   token proxy
//	POST /logout
//	GET  /settings, PUT /settings            timer durations
//	GET  /healthz, /metrics
//	GET  /static/..., and / for everything else
func (a App) Handler() http.Handler {
	r := NewBasicRouter()
	r.Use(Instrument, Logging(a.Logger), a.Sessions.Middleware)

	NewProxyHandler(a.Proxy, a.Sessions, a.Logger).Register(r)
	NewSettingsHandler(a.Timer, a.Server.SecureCookies).Register(r)

	r.HandleFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.Server.Metrics {
		r.Handle(http.MethodGet, "/metrics", metrics.Handler())
	}
	r.Handle(http.MethodGet, "/static/", web.Assets())
	r.Handle(http.MethodGet, "/", web.Shell())

	return Recover(a.Logger)(CORS(a.Server.CORSOrigins)(r))
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight requests.
func (a App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Server.Addr(),
		Handler:           a.Handler(),
		ReadTimeout:       a.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", "addr", "http://"+srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
