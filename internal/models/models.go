// package models defines the data model for the tempo token proxy and timer views
package models

import (
	"context"
	"time"
)

// TokenPair holds a session's Spotify credentials. A zero ExpiresAt means the expiry is unknown.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the access token is known to be past its expiry at now, less skew.
func (p TokenPair) Expired(now time.Time, skew time.Duration) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(p.ExpiresAt.Add(-skew))
}

// Merge returns next with the refresh token carried over from p when the provider did not issue one.
func (p TokenPair) Merge(next TokenPair) TokenPair {
	if next.RefreshToken == "" {
		next.RefreshToken = p.RefreshToken
	}
	return next
}

// Valid reports whether the pair carries an access token.
func (p TokenPair) Valid() bool {
	return p.AccessToken != ""
}

// NowPlaying is the JSON body of GET /current-track.
type NowPlaying struct {
	IsPlaying  bool   `json:"isPlaying"`
	AlbumCover string `json:"albumCover,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Link       string `json:"link,omitempty"`
	Theme      *Theme `json:"theme,omitempty"`
}

// Swatch is a background color with a legible text color, both as "#rrggbb".
type Swatch struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Theme is the dominant album color and the swatch each timer phase renders with.
type Theme struct {
	Dominant string `json:"dominant"`
	Focus    Swatch `json:"focus"`
	Break    Swatch `json:"break"`
}

// TokenStore persists token pairs keyed by session id.
//
// Get returns [shared.ErrSessionNotFound] (wrapped) when no pair exists.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	Get(ctx context.Context, sid string) (TokenPair, error)    // Get retrieves the pair for a session
	Put(ctx context.Context, sid string, pair TokenPair) error // Put creates or replaces the pair for a session
	Delete(ctx context.Context, sid string) error              // Delete removes the pair; deleting a missing session is not an error
	Close() error                                              // Close releases the backend's resources
}
