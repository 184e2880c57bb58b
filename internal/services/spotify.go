// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/tempo/internal/metrics"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// ScopeCurrentlyPlaying is the only scope the proxy requests.
	ScopeCurrentlyPlaying = "user-read-currently-playing"

	defaultTimeout = 10 * time.Second
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	ProgressMS           int           `json:"progress_ms"`
	Item                 *SpotifyTrack `json:"item"`
}

// NowPlaying maps the response to the client payload.
//
// A paused player, a null item and non-track items (ads, episodes) all report not playing.
func (c SpotifyCurrentlyPlaying) NowPlaying() models.NowPlaying {
	if !c.IsPlaying || c.Item == nil {
		return models.NowPlaying{}
	}
	if c.CurrentlyPlayingType != "" && c.CurrentlyPlayingType != "track" {
		return models.NowPlaying{}
	}

	names := make([]string, 0, len(c.Item.Artists))
	for _, a := range c.Item.Artists {
		names = append(names, a.Name)
	}

	np := models.NowPlaying{
		IsPlaying: true,
		Title:     c.Item.Name,
		Artist:    strings.Join(names, ", "),
		Link:      c.Item.ExternalURLs.Spotify,
	}
	if len(c.Item.Album.Images) > 0 {
		np.AlbumCover = c.Item.Album.Images[0].URL
	}
	return np
}

// SpotifyService implements [Provider] for Spotify.
// Uses [oauth2] for the code and refresh grants and a bearer request for the player API.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithEndpoints points the service at other accounts and API hosts, as tests do.
func WithEndpoints(authURL, tokenURL, apiBaseURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
		s.baseURL = strings.TrimSuffix(apiBaseURL, "/")
	}
}

// WithHTTPClient replaces the outbound client. Its transport is still instrumented.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		s.httpClient = c
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(creds shared.SpotifyConfig, provider shared.ProviderConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	timeout := provider.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if provider.RateLimit > 0 {
		limit = rate.Limit(provider.RateLimit)
	}
	burst := max(provider.Burst, 1)

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       []string{ScopeCurrentlyPlaying},
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(limit, burst),
	}

	for _, opt := range opts {
		opt(s)
	}

	base := s.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented := *s.httpClient
	instrumented.Transport = &instrumentedTransport{base: base}
	s.httpClient = &instrumented

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// OAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// oauthContext routes oauth2's token requests through the service client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Exchange trades an authorization code for tokens at the token endpoint.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (models.TokenPair, error) {
	if code == "" {
		return models.TokenPair{}, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return pairFromToken(tok), nil
}

// Refresh performs the refresh_token grant.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken == "" {
		return models.TokenPair{}, shared.ErrNoRefreshToken
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	return models.TokenPair{RefreshToken: refreshToken}.Merge(pairFromToken(tok)), nil
}

// CurrentlyPlaying calls GET /me/player/currently-playing with the bearer token.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (models.NowPlaying, error) {
	var body SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", accessToken, &body)
	if err != nil {
		return models.NowPlaying{}, err
	}
	if status == http.StatusNoContent {
		return models.NowPlaying{}, nil
	}
	return body.NowPlaying(), nil
}

// doRequest performs an authenticated HTTP request to the Spotify API and decodes a JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint, accessToken string, result any) (int, error) {
	if accessToken == "" {
		return 0, shared.ErrNotAuthenticated
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, shared.ErrTokenExpired
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("%w: spotify API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}
	return resp.StatusCode, nil
}

// IsPermanent reports whether a refresh error means the grant itself was rejected,
// as opposed to a network failure or provider outage worth retrying.
func IsPermanent(err error) bool {
	if errors.Is(err, shared.ErrNoRefreshToken) {
		return true
	}

	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	switch re.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	if re.Response == nil {
		return false
	}
	code := re.Response.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func pairFromToken(tok *oauth2.Token) models.TokenPair {
	return models.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// instrumentedTransport counts provider responses by endpoint and status.
type instrumentedTransport struct {
	base http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	endpoint := endpointLabel(req.URL.Path)
	if err != nil {
		metrics.ObserveProvider(endpoint, 0)
		return nil, err
	}
	metrics.ObserveProvider(endpoint, resp.StatusCode)
	return resp, nil
}

func endpointLabel(path string) string {
	switch {
	case strings.HasSuffix(path, "/api/token"):
		return "token"
	case strings.HasSuffix(path, "/me/player/currently-playing"):
		return "currently-playing"
	default:
		return "other"
	}
}
