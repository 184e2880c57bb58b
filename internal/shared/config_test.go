package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Store.Driver != "memory" {
			t.Errorf("expected memory store, got %s", config.Store.Driver)
		}
		if config.Timer.FocusMinutes != 25 || config.Timer.BreakMinutes != 5 {
			t.Errorf("expected 25/5 timer, got %d/%d", config.Timer.FocusMinutes, config.Timer.BreakMinutes)
		}
		if config.Provider.Timeout != 10*time.Second {
			t.Errorf("expected provider timeout 10s, got %v", config.Provider.Timeout)
		}
		if config.Session.TTL != 720*time.Hour {
			t.Errorf("expected session ttl 720h, got %v", config.Session.TTL)
		}
		if len(config.Palette.AllowedHosts) == 0 || config.Palette.AllowedHosts[0] != "i.scdn.co" {
			t.Errorf("expected i.scdn.co to be allowed, got %v", config.Palette.AllowedHosts)
		}
		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Server.Addr() != DefaultConfig().Server.Addr() {
			t.Errorf("created config address %s doesn't match default", config.Server.Addr())
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[store]
driver = "redis"

[store.redis]
addr = "cache:6379"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Store.Driver != "redis" || config.Store.Redis.Addr != "cache:6379" {
			t.Errorf("unexpected store config: %+v", config.Store)
		}
		if config.Timer.FocusMinutes != 25 {
			t.Errorf("missing values should keep defaults, got focus %d", config.Timer.FocusMinutes)
		}
		if err := config.Credentials.Spotify.Validate(); err != nil {
			t.Errorf("expected credentials to validate, got %v", err)
		}
	})

	t.Run("LoadConfig Invalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Timer.FocusMinutes = 50
		config.Provider.Timeout = 3 * time.Second

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Timer.FocusMinutes != 50 {
			t.Errorf("expected focus 50, got %d", loaded.Timer.FocusMinutes)
		}
		if loaded.Provider.Timeout != 3*time.Second {
			t.Errorf("expected timeout 3s, got %v", loaded.Provider.Timeout)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvClientID, "env-id")
		t.Setenv(EnvClientSecret, "env-secret")
		t.Setenv(EnvSessionSecret, "env-session")
		t.Setenv(EnvRedirectURI, "")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientID != "env-id" {
			t.Errorf("expected env-id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env-secret" {
			t.Errorf("expected env-secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Session.Secret != "env-session" {
			t.Errorf("expected env-session, got %s", config.Session.Secret)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("empty env value should not override, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})
}

func TestSpotifyConfigValidate(t *testing.T) {
	tt := []struct {
		name    string
		config  SpotifyConfig
		wantErr bool
	}{
		{"complete", SpotifyConfig{"id", "secret", "http://127.0.0.1:3000/callback"}, false},
		{"placeholder id", SpotifyConfig{"your_spotify_client_id", "secret", "http://x/callback"}, true},
		{"missing secret", SpotifyConfig{"id", "", "http://x/callback"}, true},
		{"missing redirect", SpotifyConfig{"id", "secret", ""}, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	}
}
