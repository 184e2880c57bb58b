package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tempo/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgPoll
	MsgTrackFetched
)

// tickMsg is the constructor for [MsgTick], the display refresh.
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

// pollMsg is the constructor for [MsgPoll], the now-playing poll trigger.
func pollMsg() Msg {
	return Msg{kind: MsgPoll}
}

// trackFetchedMsg is the constructor for [MsgTrackFetched]
func trackFetchedMsg(np models.NowPlaying, err error) Msg {
	return Msg{
		kind: MsgTrackFetched,
		data: struct {
			track models.NowPlaying
			err   error
		}{np, err},
	}
}
