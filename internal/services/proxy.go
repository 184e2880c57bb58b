package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/metrics"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"golang.org/x/sync/singleflight"
)

// DefaultExpirySkew is how long before ExpiresAt a token is treated as expired.
const DefaultExpirySkew = 10 * time.Second

// TokenProxy brokers a session's Spotify credentials.
//
// Auth state per session: unauthenticated (no pair) → authenticated (pair stored) →
// refresh pending (provider 401) → authenticated, or unauthenticated when the grant is rejected.
type TokenProxy struct {
	provider Provider
	store    models.TokenStore
	themes   ThemeSource
	logger   *log.Logger
	group    singleflight.Group
	now      func() time.Time
	skew     time.Duration
}

// ProxyOption customizes a [TokenProxy].
type ProxyOption func(*TokenProxy)

// WithThemes attaches album art themes to playing tracks.
func WithThemes(src ThemeSource) ProxyOption {
	return func(p *TokenProxy) { p.themes = src }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProxyOption {
	return func(p *TokenProxy) { p.now = now }
}

// NewTokenProxy creates a [TokenProxy] over provider and store.
func NewTokenProxy(provider Provider, store models.TokenStore, logger *log.Logger, opts ...ProxyOption) *TokenProxy {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	p := &TokenProxy{
		provider: provider,
		store:    store,
		logger:   logger.WithPrefix("proxy"),
		now:      time.Now,
		skew:     DefaultExpirySkew,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoginURL returns the provider consent URL for state.
func (p *TokenProxy) LoginURL(state string) string {
	return p.provider.AuthURL(state)
}

// Authorize exchanges code and stores the resulting pair for sid.
func (p *TokenProxy) Authorize(ctx context.Context, sid, code string) error {
	pair, err := p.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if !pair.Valid() {
		return fmt.Errorf("%w: token response had no access token", shared.ErrAuthFailed)
	}

	if err := p.store.Put(ctx, sid, pair); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	p.logger.Info("session authorized", "sid", short(sid))
	return nil
}

// Authenticated reports whether sid holds a usable token pair.
func (p *TokenProxy) Authenticated(ctx context.Context, sid string) bool {
	pair, err := p.store.Get(ctx, sid)
	return err == nil && pair.Valid()
}

// Logout forgets the session's tokens.
func (p *TokenProxy) Logout(ctx context.Context, sid string) error {
	if err := p.store.Delete(ctx, sid); err != nil {
		return err
	}
	p.logger.Info("session logged out", "sid", short(sid))
	return nil
}

// CurrentTrack reports what the session's listener is playing.
//
// Errors:
//   - [shared.ErrNotAuthenticated] when sid has no pair or its refresh failed
//   - [shared.ErrTokenRefreshed] when the provider rejected the access token and a refresh succeeded
//   - [shared.ErrAPIRequest] for any other provider failure
func (p *TokenProxy) CurrentTrack(ctx context.Context, sid string) (models.NowPlaying, error) {
	pair, err := p.store.Get(ctx, sid)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return models.NowPlaying{}, shared.ErrNotAuthenticated
	}
	if err != nil {
		return models.NowPlaying{}, err
	}
	if !pair.Valid() {
		return models.NowPlaying{}, shared.ErrNotAuthenticated
	}

	if pair.RefreshToken != "" && pair.Expired(p.now(), p.skew) {
		p.logger.Debug("access token past expiry, refreshing", "sid", short(sid))
		if pair, err = p.Refresh(ctx, sid); err != nil {
			return models.NowPlaying{}, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
	}

	np, err := p.provider.CurrentlyPlaying(ctx, pair.AccessToken)
	if errors.Is(err, shared.ErrTokenExpired) {
		if _, err := p.Refresh(ctx, sid); err != nil {
			return models.NowPlaying{}, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return models.NowPlaying{}, shared.ErrTokenRefreshed
	}
	if err != nil {
		return models.NowPlaying{}, err
	}

	if np.IsPlaying && np.AlbumCover != "" && p.themes != nil {
		theme, err := p.themes.Theme(ctx, np.AlbumCover)
		if err != nil {
			p.logger.Debug("album art theme unavailable", "url", np.AlbumCover, "error", err)
		} else {
			np.Theme = theme
		}
	}
	return np, nil
}

// Refresh exchanges the session's refresh token and stores the new pair.
//
// Concurrent calls for one session share a single provider request. A rejected grant
// deletes the session's pair; transient failures leave it in place for the next attempt.
func (p *TokenProxy) Refresh(ctx context.Context, sid string) (models.TokenPair, error) {
	v, err, joined := p.group.Do(sid, func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx), sid)
	})
	if joined {
		p.logger.Debug("joined in-flight refresh", "sid", short(sid))
	}
	if err != nil {
		return models.TokenPair{}, err
	}
	return v.(models.TokenPair), nil
}

func (p *TokenProxy) refresh(ctx context.Context, sid string) (models.TokenPair, error) {
	prev, err := p.store.Get(ctx, sid)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return models.TokenPair{}, shared.ErrNotAuthenticated
	}
	if err != nil {
		return models.TokenPair{}, err
	}

	next, err := p.provider.Refresh(ctx, prev.RefreshToken)
	if err != nil {
		if IsPermanent(err) {
			metrics.TokenRefreshesTotal.WithLabelValues("rejected").Inc()
			p.logger.Warn("refresh rejected, clearing session", "sid", short(sid), "error", err)
			if derr := p.store.Delete(ctx, sid); derr != nil {
				p.logger.Error("failed to clear session", "sid", short(sid), "error", derr)
			}
		} else {
			metrics.TokenRefreshesTotal.WithLabelValues("failed").Inc()
			p.logger.Warn("refresh failed, keeping tokens", "sid", short(sid), "error", err)
		}
		return models.TokenPair{}, err
	}

	merged := prev.Merge(next)
	if err := p.store.Put(ctx, sid, merged); err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	p.logger.Debug("access token refreshed", "sid", short(sid), "rotated", next.RefreshToken != "" && next.RefreshToken != prev.RefreshToken)
	return merged, nil
}

// short truncates a session id for logs.
func short(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
