package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/timer"
)

// Fallback swatches used until album art provides a theme.
var (
	focusFallback = models.Swatch{Background: "#1e1e1e", Text: "#ffffff"}
	breakFallback = models.Swatch{Background: "#1f3b2d", Text: "#ffffff"}
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// swatchFor picks the phase swatch from theme, or the fallback when there is none.
func swatchFor(theme *models.Theme, phase timer.Phase) models.Swatch {
	if theme == nil {
		if phase == timer.Break {
			return breakFallback
		}
		return focusFallback
	}
	if phase == timer.Break {
		return theme.Break
	}
	return theme.Focus
}

// Panel returns the framed style painted with the swatch.
func Panel(s models.Swatch, width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(s.Background)).
		Foreground(lipgloss.Color(s.Text)).
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)
}
