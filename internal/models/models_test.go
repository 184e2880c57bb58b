package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTokenPair(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		tt := []struct {
			name string
			pair TokenPair
			want bool
		}{
			{"unknown expiry", TokenPair{AccessToken: "a"}, false},
			{"future", TokenPair{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}, false},
			{"within skew", TokenPair{AccessToken: "a", ExpiresAt: now.Add(5 * time.Second)}, true},
			{"past", TokenPair{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}, true},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				if got := tc.pair.Expired(now, 10*time.Second); got != tc.want {
					t.Errorf("Expired() = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("Merge keeps refresh token", func(t *testing.T) {
		prev := TokenPair{AccessToken: "old", RefreshToken: "rt"}
		got := prev.Merge(TokenPair{AccessToken: "new"})
		if got.AccessToken != "new" || got.RefreshToken != "rt" {
			t.Errorf("unexpected merge result: %+v", got)
		}
	})

	t.Run("Merge replaces rotated refresh token", func(t *testing.T) {
		prev := TokenPair{AccessToken: "old", RefreshToken: "rt"}
		got := prev.Merge(TokenPair{AccessToken: "new", RefreshToken: "rt2"})
		if got.RefreshToken != "rt2" {
			t.Errorf("expected rotated refresh token, got %q", got.RefreshToken)
		}
	})
}

func TestNowPlayingJSON(t *testing.T) {
	t.Run("not playing", func(t *testing.T) {
		b, err := json.Marshal(NowPlaying{})
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != `{"isPlaying":false}` {
			t.Errorf("unexpected body %s", b)
		}
	})

	t.Run("playing", func(t *testing.T) {
		b, err := json.Marshal(NowPlaying{IsPlaying: true, AlbumCover: "u", Title: "t", Artist: "a, b", Link: "l"})
		if err != nil {
			t.Fatal(err)
		}
		want := `{"isPlaying":true,"albumCover":"u","title":"t","artist":"a, b","link":"l"}`
		if string(b) != want {
			t.Errorf("got %s, want %s", b, want)
		}
	})
}
