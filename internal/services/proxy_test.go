package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/shared"
	tu "github.com/desertthunder/tempo/internal/testing"
)

type stubThemes struct {
	theme *models.Theme
	err   error
	urls  []string
}

func (s *stubThemes) Theme(_ context.Context, imageURL string) (*models.Theme, error) {
	s.urls = append(s.urls, imageURL)
	return s.theme, s.err
}

func newTestProxy(t *testing.T, opts ...ProxyOption) (*TokenProxy, *tu.FakeSpotify, *repositories.MemoryTokenStore) {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	store := repositories.NewMemoryTokenStore()
	proxy := NewTokenProxy(newTestSpotify(t, fake), store, log.New(io.Discard), opts...)
	return proxy, fake, store
}

func login(t *testing.T, proxy *TokenProxy, sid string) {
	t.Helper()
	if err := proxy.Authorize(context.Background(), sid, tu.FakeCode); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
}

func TestTokenProxy(t *testing.T) {
	ctx := context.Background()

	t.Run("Authorize", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")

		pair, err := store.Get(ctx, "sid")
		if err != nil {
			t.Fatalf("expected stored pair: %v", err)
		}
		if pair.AccessToken != fake.AccessToken() || pair.RefreshToken != "refresh-0" {
			t.Errorf("unexpected stored pair %+v", pair)
		}
		if !proxy.Authenticated(ctx, "sid") {
			t.Error("expected session to be authenticated")
		}
	})

	t.Run("Authorize failure stores nothing", func(t *testing.T) {
		proxy, _, store := newTestProxy(t)

		if err := proxy.Authorize(ctx, "sid", "bogus"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if store.Len() != 0 {
			t.Error("expected no stored pair after failed exchange")
		}
	})

	t.Run("CurrentTrack unauthenticated", func(t *testing.T) {
		proxy, fake, _ := newTestProxy(t)

		_, err := proxy.CurrentTrack(ctx, "nobody")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if fake.APICalls() != 0 {
			t.Error("expected no provider call without tokens")
		}
	})

	t.Run("CurrentTrack playing with theme", func(t *testing.T) {
		themes := &stubThemes{theme: &models.Theme{Dominant: "#112233"}}
		proxy, _, _ := newTestProxy(t, WithThemes(themes))
		login(t, proxy, "sid")

		np, err := proxy.CurrentTrack(ctx, "sid")
		if err != nil {
			t.Fatalf("CurrentTrack() error = %v", err)
		}
		if !np.IsPlaying || np.Title == "" || np.Artist == "" || np.AlbumCover == "" || np.Link == "" {
			t.Errorf("expected all fields populated, got %+v", np)
		}
		if np.Theme == nil || np.Theme.Dominant != "#112233" {
			t.Errorf("expected theme to be attached, got %+v", np.Theme)
		}
		if len(themes.urls) != 1 || themes.urls[0] != np.AlbumCover {
			t.Errorf("expected theme lookup for album cover, got %v", themes.urls)
		}
	})

	t.Run("CurrentTrack theme failure is ignored", func(t *testing.T) {
		themes := &stubThemes{err: shared.ErrImageRejected}
		proxy, _, _ := newTestProxy(t, WithThemes(themes))
		login(t, proxy, "sid")

		np, err := proxy.CurrentTrack(ctx, "sid")
		if err != nil {
			t.Fatalf("CurrentTrack() error = %v", err)
		}
		if np.Theme != nil {
			t.Errorf("expected no theme, got %+v", np.Theme)
		}
	})

	t.Run("CurrentTrack nothing playing", func(t *testing.T) {
		themes := &stubThemes{}
		proxy, fake, _ := newTestProxy(t, WithThemes(themes))
		login(t, proxy, "sid")
		fake.SetNothingPlaying()

		np, err := proxy.CurrentTrack(ctx, "sid")
		if err != nil {
			t.Fatalf("CurrentTrack() error = %v", err)
		}
		if np != (models.NowPlaying{}) {
			t.Errorf("expected empty payload, got %+v", np)
		}
		if len(themes.urls) != 0 {
			t.Error("expected no theme lookup when nothing is playing")
		}
	})

	t.Run("CurrentTrack provider error", func(t *testing.T) {
		proxy, fake, _ := newTestProxy(t)
		login(t, proxy, "sid")
		fake.SetAPIStatus(http.StatusInternalServerError)

		_, err := proxy.CurrentTrack(ctx, "sid")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if errors.Is(err, shared.ErrNotAuthenticated) {
			t.Error("provider errors must not deauthenticate")
		}
	})

	t.Run("CurrentTrack expired token refreshes and asks to retry", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")
		fake.ExpireAccess()

		_, err := proxy.CurrentTrack(ctx, "sid")
		if !errors.Is(err, shared.ErrTokenRefreshed) {
			t.Fatalf("expected ErrTokenRefreshed, got %v", err)
		}
		if fake.RefreshCalls() != 1 {
			t.Errorf("expected exactly one refresh, got %d", fake.RefreshCalls())
		}

		pair, _ := store.Get(ctx, "sid")
		if pair.AccessToken != fake.AccessToken() {
			t.Errorf("expected stored access token %s, got %s", fake.AccessToken(), pair.AccessToken)
		}
		if pair.RefreshToken != "refresh-0" {
			t.Errorf("expected refresh token to be kept, got %q", pair.RefreshToken)
		}

		np, err := proxy.CurrentTrack(ctx, "sid")
		if err != nil {
			t.Fatalf("retry should succeed, got %v", err)
		}
		if !np.IsPlaying {
			t.Error("expected playing track on retry")
		}
	})

	t.Run("CurrentTrack rejected refresh deauthenticates", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")
		fake.ExpireAccess()
		fake.SetRefreshFailure(http.StatusBadRequest)

		_, err := proxy.CurrentTrack(ctx, "sid")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := store.Get(ctx, "sid"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected pair to be deleted, got %v", err)
		}

		fake.SetRefreshFailure(0)
		if _, err := proxy.CurrentTrack(ctx, "sid"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected session to stay unauthenticated, got %v", err)
		}
	})

	t.Run("CurrentTrack transient refresh failure keeps tokens", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")
		before, _ := store.Get(ctx, "sid")
		fake.ExpireAccess()
		fake.SetRefreshFailure(http.StatusServiceUnavailable)

		if _, err := proxy.CurrentTrack(ctx, "sid"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}

		after, err := store.Get(ctx, "sid")
		if err != nil {
			t.Fatalf("expected prior pair to remain: %v", err)
		}
		if after != before {
			t.Errorf("expected pair unchanged, got %+v", after)
		}

		fake.SetRefreshFailure(0)
		if _, err := proxy.CurrentTrack(ctx, "sid"); !errors.Is(err, shared.ErrTokenRefreshed) {
			t.Errorf("expected recovery on next poll, got %v", err)
		}
	})

	t.Run("CurrentTrack refreshes ahead of known expiry", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		proxy, fake, _ := newTestProxy(t, WithClock(clock))
		login(t, proxy, "sid")
		fake.ExpireAccess()
		now = now.Add(2 * time.Hour)

		np, err := proxy.CurrentTrack(ctx, "sid")
		if err != nil {
			t.Fatalf("expected proactive refresh to succeed, got %v", err)
		}
		if !np.IsPlaying {
			t.Error("expected playing track")
		}
		if fake.RefreshCalls() != 1 {
			t.Errorf("expected one refresh, got %d", fake.RefreshCalls())
		}
	})

	t.Run("Refresh never drops the refresh token", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")

		for i := range 3 {
			if _, err := proxy.Refresh(ctx, "sid"); err != nil {
				t.Fatalf("refresh %d failed: %v", i, err)
			}
			if fake.LastRefreshToken() != "refresh-0" {
				t.Errorf("refresh %d presented %q", i, fake.LastRefreshToken())
			}
		}

		pair, _ := store.Get(ctx, "sid")
		if pair.RefreshToken != "refresh-0" {
			t.Errorf("expected refresh-0, got %q", pair.RefreshToken)
		}
	})

	t.Run("Refresh follows rotation", func(t *testing.T) {
		proxy, fake, store := newTestProxy(t)
		login(t, proxy, "sid")
		fake.SetRotateRefresh(true)

		if _, err := proxy.Refresh(ctx, "sid"); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		pair, _ := store.Get(ctx, "sid")
		if pair.RefreshToken != fake.RefreshToken() {
			t.Errorf("expected rotated token %s, got %s", fake.RefreshToken(), pair.RefreshToken)
		}

		if _, err := proxy.Refresh(ctx, "sid"); err != nil {
			t.Fatalf("second Refresh() with rotated token error = %v", err)
		}
	})

	t.Run("Refresh is single-flight per session", func(t *testing.T) {
		proxy, fake, _ := newTestProxy(t)
		login(t, proxy, "sid")
		fake.SetRefreshDelay(200 * time.Millisecond)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := proxy.Refresh(ctx, "sid")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("Refresh() error = %v", err)
			}
		}
		if fake.RefreshCalls() != 1 {
			t.Errorf("expected one provider refresh, got %d", fake.RefreshCalls())
		}
	})

	t.Run("Sessions are isolated", func(t *testing.T) {
		proxy, _, _ := newTestProxy(t)
		login(t, proxy, "alice")

		if _, err := proxy.CurrentTrack(ctx, "bob"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected bob to be unauthenticated, got %v", err)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		proxy, _, _ := newTestProxy(t)
		login(t, proxy, "sid")

		if err := proxy.Logout(ctx, "sid"); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if _, err := proxy.CurrentTrack(ctx, "sid"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after logout, got %v", err)
		}
	})
}
