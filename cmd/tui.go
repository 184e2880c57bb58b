package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
	"github.com/desertthunder/tempo/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/tempo-tui.log"

// TUI launches the terminal timer.
//
// Without Spotify tokens it runs the login flow first, unless --offline is set. Focus minutes
// adjusted in the UI are saved to the config file on quit.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg()
	settings := timer.Settings{FocusMinutes: cfg.Timer.FocusMinutes, BreakMinutes: cfg.Timer.BreakMinutes}
	if err := settings.Validate(); err != nil {
		r.logger.Warn("invalid timer settings, using defaults", "error", err)
		settings = timer.DefaultSettings()
	}

	var fetch ui.NowPlayingFunc
	if !cmd.Bool("offline") {
		proxy, err := r.tokenProxy(ctx, true)
		if err != nil {
			return err
		}
		defer r.closeStore()

		if !proxy.Authenticated(ctx, CLISession) {
			if err := r.doOAuth(ctx, proxy); err != nil {
				return err
			}
		}
		fetch = func(ctx context.Context) (models.NowPlaying, error) {
			return proxy.CurrentTrack(ctx, CLISession)
		}
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = tuiLogFile
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, settings, fetch, ui.WithLogger(fileLogger))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if model.SettingsChanged() {
		return r.saveTimerSettings(model.Settings())
	}
	return nil
}

func (r *Runner) saveTimerSettings(s timer.Settings) error {
	cfg := r.cfg()
	cfg.Timer.FocusMinutes = s.FocusMinutes
	cfg.Timer.BreakMinutes = s.BreakMinutes
	if err := shared.SaveConfig(r.configPath, cfg); err != nil {
		return fmt.Errorf("failed to save timer settings: %w", err)
	}
	r.logger.Info("timer settings saved", "path", r.configPath, "focus", s.FocusMinutes, "break", s.BreakMinutes)
	return nil
}
