package palette

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/desertthunder/tempo/internal/timer"
	"github.com/lucasb-eyer/go-colorful"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDominant(t *testing.T) {
	t.Run("solid color", func(t *testing.T) {
		c, err := Dominant(solid(100, 100, color.NRGBA{R: 200, G: 30, B: 40, A: 255}))
		if err != nil {
			t.Fatalf("Dominant() error = %v", err)
		}
		if got := c.Hex(); got != "#c81e28" {
			t.Errorf("expected #c81e28, got %s", got)
		}
	})

	t.Run("majority wins", func(t *testing.T) {
		img := solid(100, 100, color.NRGBA{R: 20, G: 40, B: 200, A: 255})
		for y := range 20 {
			for x := range 100 {
				img.SetNRGBA(x, y, color.NRGBA{R: 220, G: 10, B: 10, A: 255})
			}
		}

		c, err := Dominant(img)
		if err != nil {
			t.Fatalf("Dominant() error = %v", err)
		}
		if c.B < c.R {
			t.Errorf("expected blue to dominate, got %s", c.Hex())
		}
	})

	t.Run("skips white and transparent pixels", func(t *testing.T) {
		img := solid(100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		for y := range 100 {
			for x := range 30 {
				img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 150, B: 10, A: 255})
			}
			for x := 30; x < 60; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 0, B: 200, A: 40})
			}
		}

		c, err := Dominant(img)
		if err != nil {
			t.Fatalf("Dominant() error = %v", err)
		}
		if c.G < c.R || c.G < c.B {
			t.Errorf("expected green, got %s", c.Hex())
		}
	})

	t.Run("all white", func(t *testing.T) {
		_, err := Dominant(solid(10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
		if !errors.Is(err, ErrNoColor) {
			t.Errorf("expected ErrNoColor, got %v", err)
		}
	})

	t.Run("empty image", func(t *testing.T) {
		if _, err := Dominant(image.NewNRGBA(image.Rect(0, 0, 0, 0))); err == nil {
			t.Error("expected error for empty image")
		}
	})
}

func TestAdjustForPhase(t *testing.T) {
	tt := []struct {
		name  string
		in    string
		phase timer.Phase
		want  string
	}{
		{"bright red darkened", "#ff0000", timer.Focus, "#800000"},
		{"already dark", "#303030", timer.Focus, "#303030"},
		{"at threshold", "#808080", timer.Focus, "#808080"},
		{"break unchanged", "#ff0000", timer.Break, "#ff0000"},
		{"scales every channel", "#ff8000", timer.Focus, "#804000"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, err := colorful.Hex(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := AdjustForPhase(c, tc.phase).Hex(); got != tc.want {
				t.Errorf("AdjustForPhase(%s) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestContrastText(t *testing.T) {
	tt := []struct {
		in   string
		want string
	}{
		{"#000000", TextLight},
		{"#FFFFFF", TextDark},
		{"#ffffff", TextDark},
		{"#808080", TextDark},
		{"#7f7f7f", TextLight},
		{"#800000", TextLight},
		{"", TextLight},
		{"not-a-color", TextLight},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			if got := ContrastText(tc.in); got != tc.want {
				t.Errorf("ContrastText(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestThemeFor(t *testing.T) {
	c, _ := colorful.Hex("#ffcc00")
	theme := ThemeFor(c)

	if theme.Dominant != "#ffcc00" {
		t.Errorf("expected dominant #ffcc00, got %s", theme.Dominant)
	}
	if theme.Break.Background != "#ffcc00" || theme.Break.Text != TextDark {
		t.Errorf("unexpected break swatch %+v", theme.Break)
	}
	if theme.Focus.Background != "#806600" || theme.Focus.Text != TextLight {
		t.Errorf("unexpected focus swatch %+v", theme.Focus)
	}
	t.Run("light dominant keeps white focus text", func(t *testing.T) {
		for _, hex := range []string{"#f0f0f0", "#ffffff"} {
			c, _ := colorful.Hex(hex)
			theme := ThemeFor(c)
			if theme.Focus.Background != "#808080" {
				t.Errorf("%s: expected focus background #808080, got %s", hex, theme.Focus.Background)
			}
			if theme.Focus.Text != TextLight {
				t.Errorf("%s: expected focus text %s, got %s", hex, TextLight, theme.Focus.Text)
			}
			if theme.Break.Text != TextDark {
				t.Errorf("%s: expected break text %s, got %s", hex, TextDark, theme.Break.Text)
			}
		}
	})
}
