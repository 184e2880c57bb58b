package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Fake credentials accepted by [FakeSpotify].
const (
	FakeClientID     = "test_client_id"
	FakeClientSecret = "test_client_secret"
	FakeCode         = "test-code"
)

// CurrentlyPlayingJSON is a trimmed /me/player/currently-playing body for a playing track.
const CurrentlyPlayingJSON = `{
  "is_playing": true,
  "currently_playing_type": "track",
  "progress_ms": 42000,
  "item": {
    "id": "4uLU6hMCjMI75M1A2tKUQC",
    "name": "Never Gonna Give You Up",
    "artists": [{"name": "Rick Astley"}, {"name": "Guest"}],
    "album": {
      "name": "Whenever You Need Somebody",
      "images": [
        {"url": "https://i.scdn.co/image/large", "height": 640, "width": 640},
        {"url": "https://i.scdn.co/image/small", "height": 64, "width": 64}
      ]
    },
    "external_urls": {"spotify": "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"}
  }
}`

// PausedJSON is a currently-playing body for a paused track.
const PausedJSON = `{"is_playing": false, "currently_playing_type": "track", "item": {"name": "Paused", "artists": [], "album": {"images": []}}}`

// FakeSpotify serves the accounts token endpoint and the currently-playing API on one server.
//
// Exactly one access token is valid at a time; [FakeSpotify.ExpireAccess] invalidates it so the
// next API call answers 401 the way Spotify does for an expired token.
type FakeSpotify struct {
	*httptest.Server

	mu           sync.Mutex
	access       string
	refresh      string
	issued       int
	rotate       bool
	refreshFail  int
	refreshDelay time.Duration
	apiStatus    int
	body         string

	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	apiCalls      atomic.Int32
	lastRefresh   atomic.Value
}

// NewFakeSpotify starts a fake and closes it when the test ends. It reports [CurrentlyPlayingJSON].
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{refresh: "refresh-0", body: CurrentlyPlayingJSON}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", f.handleAuthorize)
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/me/player/currently-playing", f.handleCurrentlyPlaying)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeSpotify) AuthURL() string    { return f.URL + "/authorize" }
func (f *FakeSpotify) TokenURL() string   { return f.URL + "/api/token" }
func (f *FakeSpotify) APIBaseURL() string { return f.URL + "/v1" }

// SetPlaying makes the API answer 200 with body.
func (f *FakeSpotify) SetPlaying(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiStatus, f.body = 0, body
}

// SetNothingPlaying makes the API answer 204.
func (f *FakeSpotify) SetNothingPlaying() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiStatus, f.body = http.StatusNoContent, ""
}

// SetAPIStatus forces the API to answer status for authorized requests.
func (f *FakeSpotify) SetAPIStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiStatus = status
}

// SetRotateRefresh controls whether refresh grants issue a new refresh token.
func (f *FakeSpotify) SetRotateRefresh(rotate bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotate = rotate
}

// SetRefreshFailure makes refresh grants fail with status (400 answers invalid_grant). Zero clears it.
func (f *FakeSpotify) SetRefreshFailure(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFail = status
}

// SetRefreshDelay holds every refresh grant for d before answering.
func (f *FakeSpotify) SetRefreshDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDelay = d
}

// ExpireAccess invalidates the current access token.
func (f *FakeSpotify) ExpireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired-" + f.access
}

// AccessToken returns the access token the API currently accepts.
func (f *FakeSpotify) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

// RefreshToken returns the refresh token the token endpoint currently accepts.
func (f *FakeSpotify) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

// LastRefreshToken returns the refresh token presented by the most recent refresh grant.
func (f *FakeSpotify) LastRefreshToken() string {
	v, _ := f.lastRefresh.Load().(string)
	return v
}

func (f *FakeSpotify) RefreshCalls() int  { return int(f.refreshCalls.Load()) }
func (f *FakeSpotify) ExchangeCalls() int { return int(f.exchangeCalls.Load()) }
func (f *FakeSpotify) APICalls() int      { return int(f.apiCalls.Load()) }

// handleAuthorize mimics the consent page by redirecting straight back with a code.
func (f *FakeSpotify) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := fmt.Sprintf("%s?code=%s&state=%s", q.Get("redirect_uri"), FakeCode, q.Get("state"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.exchangeCalls.Add(1)
		if r.PostForm.Get("code") != FakeCode {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		f.mu.Lock()
		f.issued++
		f.access = fmt.Sprintf("access-%d", f.issued)
		body := map[string]any{
			"access_token":  f.access,
			"refresh_token": f.refresh,
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "user-read-currently-playing",
		}
		f.mu.Unlock()
		writeFakeJSON(w, http.StatusOK, body)
	case "refresh_token":
		f.refreshCalls.Add(1)
		presented := r.PostForm.Get("refresh_token")
		f.lastRefresh.Store(presented)

		f.mu.Lock()
		delay, fail := f.refreshDelay, f.refreshFail
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		if fail != 0 {
			writeFakeJSON(w, fail, map[string]string{"error": "invalid_grant", "error_description": "Refresh token revoked"})
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if presented != f.refresh {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}

		f.issued++
		f.access = fmt.Sprintf("access-%d", f.issued)
		body := map[string]any{
			"access_token": f.access,
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if f.rotate {
			f.refresh = fmt.Sprintf("refresh-%d", f.issued)
			body["refresh_token"] = f.refresh
		}
		writeFakeJSON(w, http.StatusOK, body)
	default:
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *FakeSpotify) handleCurrentlyPlaying(w http.ResponseWriter, r *http.Request) {
	f.apiCalls.Add(1)

	f.mu.Lock()
	access, status, body := f.access, f.apiStatus, f.body
	f.mu.Unlock()

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || access == "" || token != access {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"status": 401, "message": "The access token expired"},
		})
		return
	}

	switch {
	case status == http.StatusNoContent:
		w.WriteHeader(http.StatusNoContent)
	case status != 0:
		writeFakeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "boom"}})
	default:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
