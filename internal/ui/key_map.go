package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle key.Binding
	reset  key.Binding
	more   key.Binding
	less   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause")),
		reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		more:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "focus +1m")),
		less:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "focus -1m")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.reset, k.more, k.less, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.reset},
		{k.more, k.less},
		{k.quit},
	}
}
