package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/tempo/internal/server"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 flow for the terminal session.
//
// Starts a local HTTP server on the redirect URI's address, opens the browser for user
// authorization, and stores the exchanged tokens under [CLISession].
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	proxy, err := r.tokenProxy(ctx, true)
	if err != nil {
		return err
	}
	defer r.closeStore()

	if err := r.doOAuth(ctx, proxy); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("You can now use: tempo tui\n")
	return nil
}

// AuthStatus reports whether the terminal session holds tokens.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	proxy, err := r.tokenProxy(ctx, true)
	if err != nil {
		return err
	}
	defer r.closeStore()

	if proxy.Authenticated(ctx, CLISession) {
		return r.writePlain("✓ Connected to Spotify\n")
	}
	return r.writePlain("✗ Not connected. Run: tempo auth login\n")
}

// AuthLogout deletes the terminal session's tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	proxy, err := r.tokenProxy(ctx, true)
	if err != nil {
		return err
	}
	defer r.closeStore()

	if err := proxy.Logout(ctx, CLISession); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return r.writePlain("✓ Spotify tokens removed\n")
}

// Now prints the terminal session's current track.
func (r *Runner) Now(ctx context.Context, cmd *cli.Command) error {
	proxy, err := r.tokenProxy(ctx, true)
	if err != nil {
		return err
	}
	defer r.closeStore()

	np, err := proxy.CurrentTrack(ctx, CLISession)
	if errors.Is(err, shared.ErrTokenRefreshed) {
		np, err = proxy.CurrentTrack(ctx, CLISession)
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return fmt.Errorf("%w: run tempo auth login", err)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(np, false)
	}
	if !np.IsPlaying {
		return r.writePlain("Nothing playing\n")
	}
	r.writePlain("♪ %s\n  %s\n", np.Title, np.Artist)
	if np.Link != "" {
		r.writePlain("  %s\n", np.Link)
	}
	if np.Theme != nil {
		r.writePlain("  theme: focus %s, break %s\n", np.Theme.Focus.Background, np.Theme.Break.Background)
	}
	return nil
}

// callbackAddr returns the listen address for the local callback server.
func callbackAddr(redirectURI, fallback string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return fallback, nil
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("%w: redirect_uri must be a local http URL for terminal login, got %s", shared.ErrInvalidConfig, redirectURI)
	}
	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(host, port), nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, proxy *services.TokenProxy) error {
	cfg := r.cfg()

	sessions, err := server.NewSessions(cfg.Session.Secret, cfg.Session.TTL, false)
	if err != nil {
		return err
	}
	state, err := sessions.IssueState(CLISession)
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	addr, err := callbackAddr(cfg.Credentials.Spotify.RedirectURI, cfg.Server.Addr())
	if err != nil {
		return err
	}

	oauthHandler := server.NewOAuthHandler(
		func(s string) error { return sessions.VerifyState(s, CLISession) },
		func(ctx context.Context, code string) error { return proxy.Authorize(ctx, CLISession, code) },
	)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Debug("starting OAuth callback server", "addr", addr)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := proxy.LoginURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(ctx, authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.authTimeout)

	timeout := time.NewTimer(r.authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.authTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	return nil
}
