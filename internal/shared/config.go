package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values read from the config file.
const (
	EnvClientID      = "TEMPO_SPOTIFY_CLIENT_ID"
	EnvClientSecret  = "TEMPO_SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI   = "TEMPO_SPOTIFY_REDIRECT_URI"
	EnvSessionSecret = "TEMPO_SESSION_SECRET"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Store       StoreConfig       `toml:"store"`
	Provider    ProviderConfig    `toml:"provider"`
	Palette     PaletteConfig     `toml:"palette"`
	Timer       TimerConfig       `toml:"timer"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Validate reports whether the credentials needed for the OAuth flow are present.
func (s SpotifyConfig) Validate() error {
	switch {
	case s.ClientID == "" || s.ClientID == "your_spotify_client_id":
		return fmt.Errorf("%w: credentials.spotify.client_id", ErrMissingCredentials)
	case s.ClientSecret == "" || s.ClientSecret == "your_spotify_client_secret":
		return fmt.Errorf("%w: credentials.spotify.client_secret", ErrMissingCredentials)
	case s.RedirectURI == "":
		return fmt.Errorf("%w: credentials.spotify.redirect_uri", ErrMissingCredentials)
	}
	return nil
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string        `toml:"host"`
	Port          int           `toml:"port"`
	ReadTimeout   time.Duration `toml:"read_timeout"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	CORSOrigins   []string      `toml:"cors_origins"`
	Metrics       bool          `toml:"metrics"`
	SecureCookies bool          `toml:"secure_cookies"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret string        `toml:"secret"`
	TTL    time.Duration `toml:"ttl"`
}

// StoreConfig selects the token store backend.
type StoreConfig struct {
	Driver    string       `toml:"driver"`
	KeyPrefix string       `toml:"key_prefix"`
	SQLite    SQLiteConfig `toml:"sqlite"`
	Redis     RedisConfig  `toml:"redis"`
}

// SQLiteConfig contains database connection settings.
type SQLiteConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ProviderConfig bounds outbound calls to Spotify.
type ProviderConfig struct {
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"`
	Burst     int           `toml:"burst"`
}

// PaletteConfig controls album art color extraction.
type PaletteConfig struct {
	Enabled      bool     `toml:"enabled"`
	CacheSize    int      `toml:"cache_size"`
	MaxBytes     int64    `toml:"max_bytes"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

// TimerConfig holds the terminal timer's durations.
type TimerConfig struct {
	FocusMinutes int `toml:"focus_minutes"`
	BreakMinutes int `toml:"break_minutes"`
}

// LogConfig sets the log level and optional log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides credentials and the session secret from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.Spotify.ClientID, EnvClientID)
	set(&c.Credentials.Spotify.ClientSecret, EnvClientSecret)
	set(&c.Credentials.Spotify.RedirectURI, EnvRedirectURI)
	set(&c.Session.Secret, EnvSessionSecret)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path, replacing the file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
