package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
)

const (
	TickInterval = 100 * time.Millisecond
	PollInterval = 5 * time.Second
)

// NowPlayingFunc fetches the listener's current track.
type NowPlayingFunc func(ctx context.Context) (models.NowPlaying, error)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	timer    *timer.Timer
	fetch    NowPlayingFunc
	logger   *log.Logger
	now      func() time.Time
	track    models.NowPlaying
	loggedIn bool
	polled   bool
	dirty    bool
	flash    string
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// Option customizes a [Model].
type Option func(*Model)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithLogger sets the logger for poll failures. The terminal is owned by bubbletea, so this
// should write to a file.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// NewModel creates a new TUI model. fetch may be nil to run the timer without now-playing.
func NewModel(ctx context.Context, settings timer.Settings, fetch NowPlayingFunc, opts ...Option) *Model {
	m := &Model{
		ctx:      ctx,
		timer:    timer.New(settings),
		fetch:    fetch,
		now:      time.Now,
		loggedIn: true,
		help:     help.New(),
		keys:     newKeyMap(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	return m
}

// Settings returns the durations the timer is configured with.
func (m *Model) Settings() timer.Settings { return m.timer.Settings() }

// SettingsChanged reports whether the durations were adjusted during the session.
func (m *Model) SettingsChanged() bool { return m.dirty }

// Init starts the display tick and the first poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.fetchTrack())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgTick:
			if m.timer.Tick(msg.data.(time.Time)) {
				m.flash = fmt.Sprintf("%s time", m.timer.State().Phase)
			}
			return m, tick()
		case MsgPoll:
			return m, m.fetchTrack()
		case MsgTrackFetched:
			data := msg.data.(struct {
				track models.NowPlaying
				err   error
			})
			m.handleTrack(data.track, data.err)
			return m, poll()
		}
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.now()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.timer.Toggle(now)
		m.flash = ""
	case key.Matches(msg, m.keys.reset):
		m.timer.Reset()
		m.flash = ""
	case key.Matches(msg, m.keys.more):
		m.adjustFocus(1)
	case key.Matches(msg, m.keys.less):
		m.adjustFocus(-1)
	}
	return m, nil
}

// adjustFocus changes the focus duration; it applies from the next reset.
func (m *Model) adjustFocus(delta int) {
	s := m.timer.Settings()
	s.FocusMinutes += delta
	if err := m.timer.ApplySettings(s); err != nil {
		m.flash = fmt.Sprintf("focus must be %d-%d minutes", timer.MinMinutes, timer.MaxMinutes)
		return
	}
	m.dirty = true
	m.flash = fmt.Sprintf("focus %dm from next reset", s.FocusMinutes)
}

func (m *Model) handleTrack(np models.NowPlaying, err error) {
	m.polled = true
	switch {
	case err == nil:
		m.loggedIn = true
		m.track = np
	case errors.Is(err, shared.ErrNotAuthenticated):
		m.loggedIn = false
		m.track = models.NowPlaying{}
	case errors.Is(err, shared.ErrTokenRefreshed):
		m.logger.Debug("token refreshed, retrying on next poll")
	default:
		m.logger.Warn("now playing poll failed", "err", err)
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func poll() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg { return pollMsg() })
}

func (m *Model) fetchTrack() tea.Cmd {
	if m.fetch == nil {
		return nil
	}
	return func() tea.Msg {
		np, err := m.fetch(m.ctx)
		return trackFetchedMsg(np, err)
	}
}

// View renders the countdown, clock and now-playing panel.
func (m *Model) View() string {
	now := m.now()
	state := m.timer.State()
	swatch := swatchFor(m.track.Theme, state.Phase)

	status := "paused"
	if state.Running {
		status = "running"
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.title.Render("tempo"),
		"  ",
		now.Format("15:04"),
	)
	phase := fmt.Sprintf("%s · %s", strings.ToUpper(state.Phase.String()), status)
	clock := BigDigits(timer.Format(m.timer.Remaining(now)))

	lines := []string{header, "", phase, "", clock, ""}
	lines = append(lines, m.renderTrack())
	if m.flash != "" {
		lines = append(lines, "", styles.warn.Render(m.flash))
	}
	lines = append(lines, "", m.help.ShortHelpView(m.keys.ShortHelp()))

	body := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return Panel(swatch, m.width, m.height).Render(body)
}

func (m *Model) renderTrack() string {
	switch {
	case m.fetch == nil:
		return ""
	case !m.loggedIn:
		return styles.err.Render("Spotify not connected · run `tempo auth`")
	case !m.polled:
		return styles.help.Render("checking Spotify...")
	case !m.track.IsPlaying:
		return styles.help.Render("Nothing playing")
	default:
		return fmt.Sprintf("♪ %s\n%s", styles.ok.Render(m.track.Title), m.track.Artist)
	}
}

var glyphs = map[rune][5]string{
	'0': {"███", "█ █", "█ █", "█ █", "███"},
	'1': {" █ ", "██ ", " █ ", " █ ", "███"},
	'2': {"███", "  █", "███", "█  ", "███"},
	'3': {"███", "  █", "███", "  █", "███"},
	'4': {"█ █", "█ █", "███", "  █", "  █"},
	'5': {"███", "█  ", "███", "  █", "███"},
	'6': {"███", "█  ", "███", "█ █", "███"},
	'7': {"███", "  █", "  █", "  █", "  █"},
	'8': {"███", "█ █", "███", "█ █", "███"},
	'9': {"███", "█ █", "███", "  █", "███"},
	':': {"   ", " █ ", "   ", " █ ", "   "},
}

// BigDigits renders s in a five row block font. Unknown runes become blank columns.
func BigDigits(s string) string {
	rows := make([]string, 5)
	for i, r := range s {
		g, ok := glyphs[r]
		if !ok {
			g = [5]string{"   ", "   ", "   ", "   ", "   "}
		}
		for row := range rows {
			if i > 0 {
				rows[row] += " "
			}
			rows[row] += g[row]
		}
	}
	return strings.Join(rows, "\n")
}
