// package services defines the Provider interface for the OAuth music service behind the token proxy
package services

import (
	"context"

	"github.com/desertthunder/tempo/internal/models"
)

// Provider is an OAuth music service that can report the listener's current track.
type Provider interface {
	// AuthURL returns the consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token pair.
	Exchange(ctx context.Context, code string) (models.TokenPair, error)

	// Refresh trades a refresh token for a new token pair.
	// The returned pair carries refreshToken when the provider did not rotate it.
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)

	// CurrentlyPlaying reads the listener's current track with accessToken.
	// Returns [shared.ErrTokenExpired] when the provider rejects the token.
	CurrentlyPlaying(ctx context.Context, accessToken string) (models.NowPlaying, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// ThemeSource derives a color theme from album art.
type ThemeSource interface {
	Theme(ctx context.Context, imageURL string) (*models.Theme, error)
}
