package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/palette"
	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/services"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// CLISession keys the terminal's tokens in the store.
const CLISession = "cli"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	provider    services.Provider
	store       models.TokenStore
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(ctx context.Context, url string) error
	authTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Provider and Store replace the ones built from config.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Provider    services.Provider
	Store       models.TokenStore
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(ctx context.Context, url string) error
	AuthTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 2 * time.Minute
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		provider:    opts.Provider,
		store:       opts.Store,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		authTimeout: opts.AuthTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, tuiCommand, authCommand, nowCommand, setupCommand, paletteCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration and sets the log level for every command.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.configPath == "" {
		r.configPath = "config.toml"
	}

	if r.config == nil {
		config, err := r.loadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// loadConfig reads path when it exists and falls back to defaults otherwise. Environment
// variables override both.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}
	config.ApplyEnv()
	return config, nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// spotify returns the injected provider or builds one from the credentials.
func (r *Runner) spotify() (services.Provider, error) {
	if r.provider != nil {
		return r.provider, nil
	}
	cfg := r.cfg()
	if err := cfg.Credentials.Spotify.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set them in %s or TEMPO_SPOTIFY_* variables)", err, r.configPath)
	}
	svc, err := services.NewSpotifyService(cfg.Credentials.Spotify, cfg.Provider)
	if err != nil {
		return nil, err
	}
	r.provider = svc
	return svc, nil
}

// openStore opens the configured token store. Terminal commands pass persistent so that a memory
// driver falls back to sqlite and logins survive the process.
func (r *Runner) openStore(ctx context.Context, persistent bool) (models.TokenStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	cfg := r.cfg()
	storeCfg := cfg.Store
	if persistent && (storeCfg.Driver == "" || strings.EqualFold(storeCfg.Driver, repositories.DriverMemory)) {
		storeCfg.Driver = repositories.DriverSQLite
	}

	store, err := repositories.Open(ctx, storeCfg, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s token store: %w", storeCfg.Driver, err)
	}
	r.store = store
	return store, nil
}

// themes returns the album art theme source, or nil when disabled.
func (r *Runner) themes() (services.ThemeSource, error) {
	cfg := r.cfg()
	if !cfg.Palette.Enabled {
		return nil, nil
	}
	extractor, err := palette.NewExtractor(cfg.Palette, palette.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	return extractor, nil
}

// tokenProxy wires the provider, store and themes for commands that talk to Spotify.
func (r *Runner) tokenProxy(ctx context.Context, persistent bool) (*services.TokenProxy, error) {
	provider, err := r.spotify()
	if err != nil {
		return nil, err
	}
	store, err := r.openStore(ctx, persistent)
	if err != nil {
		return nil, err
	}

	opts := []services.ProxyOption{}
	themes, err := r.themes()
	if err != nil {
		return nil, err
	}
	if themes != nil {
		opts = append(opts, services.WithThemes(themes))
	}
	return services.NewTokenProxy(provider, store, r.logger, opts...), nil
}

func (r *Runner) closeStore() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close token store", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
