// Package timer implements the Pomodoro countdown as a wall-clock anchored state machine.
//
// Remaining time is always recomputed from the anchor instant and the time accumulated
// before the last pause, never by decrementing a counter, so a view that stops ticking
// (a suspended process, a backgrounded tab) shows the correct value on its next frame.
//
// When a phase reaches zero the timer flips to the other phase, loads that phase's
// configured duration and stops; the next phase waits for an explicit Start.
package timer

import (
	"fmt"
	"time"

	"github.com/desertthunder/tempo/internal/shared"
)

// Phase is the countdown mode.
type Phase int

const (
	Focus Phase = iota
	Break
)

func (p Phase) String() string {
	switch p {
	case Focus:
		return "Focus"
	case Break:
		return "Break"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	if p == Focus {
		return Break
	}
	return Focus
}

// Bounds for configured phase durations, in minutes.
const (
	MinMinutes = 1
	MaxMinutes = 180

	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5
)

// Settings holds the configured phase durations.
type Settings struct {
	FocusMinutes int `json:"focusMinutes"`
	BreakMinutes int `json:"breakMinutes"`
}

// DefaultSettings returns 25 minutes of focus and 5 of break.
func DefaultSettings() Settings {
	return Settings{FocusMinutes: DefaultFocusMinutes, BreakMinutes: DefaultBreakMinutes}
}

// Validate checks both durations are within [MinMinutes, MaxMinutes].
func (s Settings) Validate() error {
	if s.FocusMinutes < MinMinutes || s.FocusMinutes > MaxMinutes {
		return fmt.Errorf("%w: focus minutes must be between %d and %d, got %d", shared.ErrInvalidInput, MinMinutes, MaxMinutes, s.FocusMinutes)
	}
	if s.BreakMinutes < MinMinutes || s.BreakMinutes > MaxMinutes {
		return fmt.Errorf("%w: break minutes must be between %d and %d, got %d", shared.ErrInvalidInput, MinMinutes, MaxMinutes, s.BreakMinutes)
	}
	return nil
}

// Seconds returns the configured length of phase in seconds.
func (s Settings) Seconds(phase Phase) int {
	if phase == Break {
		return s.BreakMinutes * 60
	}
	return s.FocusMinutes * 60
}

// State is a snapshot of the countdown.
//
// Anchor is the instant the current run started and is zero while stopped.
// Accumulated is the running time banked by earlier pauses within this phase.
type State struct {
	Phase        Phase
	Running      bool
	Anchor       time.Time
	Accumulated  time.Duration
	TotalSeconds int
	Remaining    int
}

// Elapsed returns the running time of the phase at now. Clock steps backwards count as zero.
func (s State) Elapsed(now time.Time) time.Duration {
	elapsed := s.Accumulated
	if s.Running && !s.Anchor.IsZero() {
		if d := now.Sub(s.Anchor); d > 0 {
			elapsed += d
		}
	}
	return elapsed
}

// ComputeRemaining returns max(0, TotalSeconds - floor(elapsed/1s)) for a running state
// and the frozen Remaining for a stopped one.
func ComputeRemaining(s State, now time.Time) int {
	if !s.Running {
		return s.Remaining
	}
	return max(0, s.TotalSeconds-int(s.Elapsed(now)/time.Second))
}

// Timer drives a [State] through Start, Pause, Reset and phase flips.
//
// A Timer is not safe for concurrent use; views own one each.
type Timer struct {
	settings Settings
	state    State
}

// New returns a stopped timer at the start of a Focus phase. Invalid settings fall back
// to [DefaultSettings].
func New(settings Settings) *Timer {
	if settings.Validate() != nil {
		settings = DefaultSettings()
	}
	t := &Timer{settings: settings}
	t.Reset()
	return t
}

// Settings returns the configured durations.
func (t *Timer) Settings() Settings { return t.settings }

// State returns a copy of the current state.
func (t *Timer) State() State { return t.state }

// Remaining returns the seconds left in the phase at now without mutating the timer.
func (t *Timer) Remaining(now time.Time) int {
	return ComputeRemaining(t.state, now)
}

// Start begins or resumes the countdown at now. Starting a running timer is a no-op.
func (t *Timer) Start(now time.Time) {
	if t.state.Running {
		return
	}
	t.state.Anchor = now
	t.state.Running = true
}

// Pause banks the elapsed run time and freezes Remaining. Pausing a stopped timer is a no-op.
//
// A pause that lands after the phase already ran out flips the phase instead.
func (t *Timer) Pause(now time.Time) {
	if !t.state.Running {
		return
	}
	if t.Tick(now) {
		return
	}

	t.state.Accumulated = t.state.Elapsed(now)
	t.state.Anchor = time.Time{}
	t.state.Running = false
	t.state.Remaining = max(0, t.state.TotalSeconds-int(t.state.Accumulated/time.Second))
}

// Toggle pauses a running timer and starts a stopped one.
func (t *Timer) Toggle(now time.Time) {
	if t.state.Running {
		t.Pause(now)
	} else {
		t.Start(now)
	}
}

// Reset stops the timer and returns it to a full Focus phase using the configured durations.
func (t *Timer) Reset() {
	total := t.settings.Seconds(Focus)
	t.state = State{Phase: Focus, TotalSeconds: total, Remaining: total}
}

// Tick recomputes Remaining at now and reports whether the phase flipped.
//
// On reaching zero the phase flips, TotalSeconds becomes the new phase's configured
// duration, accumulators clear and the timer stops.
func (t *Timer) Tick(now time.Time) bool {
	if !t.state.Running {
		return false
	}

	remaining := ComputeRemaining(t.state, now)
	if remaining > 0 {
		t.state.Remaining = remaining
		return false
	}

	next := t.state.Phase.Next()
	total := t.settings.Seconds(next)
	t.state = State{Phase: next, TotalSeconds: total, Remaining: total}
	return true
}

// ApplySettings stores new durations. The running phase keeps its length; the change
// takes effect on the next Reset or phase flip.
func (t *Timer) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.settings = s
	return nil
}

// Progress returns the completed fraction of the phase at now, in [0, 1].
func (t *Timer) Progress(now time.Time) float64 {
	if t.state.TotalSeconds <= 0 {
		return 0
	}
	done := t.state.TotalSeconds - t.Remaining(now)
	return float64(done) / float64(t.state.TotalSeconds)
}

// Format renders seconds as MM:SS. Minutes are not wrapped into hours.
func Format(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
