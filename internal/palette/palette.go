package palette

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/desertthunder/tempo/internal/timer"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	sampleSize   = 64
	maxBoxes     = 8
	sigBits      = 5
	rshift       = 8 - sigBits
	minAlpha     = 125
	whiteCeiling = 250

	// FocusCeiling is the highest channel intensity allowed behind the Focus countdown.
	FocusCeiling = 0.5

	TextLight = "#ffffff"
	TextDark  = "#000000"
)

// ErrNoColor is returned when every pixel was transparent or near white.
var ErrNoColor = errors.New("no usable pixels in image")

type pixel [3]uint8

// box is a set of pixels bounded in quantized RGB space.
type box struct {
	pixels   []pixel
	min, max [3]uint8
}

func newBox(pixels []pixel) *box {
	b := &box{pixels: pixels, min: [3]uint8{255, 255, 255}}
	for _, p := range pixels {
		for c := range 3 {
			q := p[c] >> rshift
			b.min[c] = min(b.min[c], q)
			b.max[c] = max(b.max[c], q)
		}
	}
	return b
}

func (b *box) volume() int {
	v := 1
	for c := range 3 {
		v *= int(b.max[c]-b.min[c]) + 1
	}
	return v
}

func (b *box) splittable() bool {
	return len(b.pixels) > 1 && b.volume() > 1
}

// longest returns the channel with the widest quantized range.
func (b *box) longest() int {
	best := 0
	for c := 1; c < 3; c++ {
		if b.max[c]-b.min[c] > b.max[best]-b.min[best] {
			best = c
		}
	}
	return best
}

// split cuts the box at the median of its longest channel. Pixels sharing a quantized
// value always land on the same side.
func (b *box) split() (*box, *box) {
	c := b.longest()
	sort.Slice(b.pixels, func(i, j int) bool { return b.pixels[i][c] < b.pixels[j][c] })

	cut := b.pixels[len(b.pixels)/2][c] >> rshift
	if cut == b.max[c] {
		cut--
	}

	i := sort.Search(len(b.pixels), func(i int) bool { return b.pixels[i][c]>>rshift > cut })
	return newBox(b.pixels[:i]), newBox(b.pixels[i:])
}

func (b *box) average() colorful.Color {
	var sum [3]int
	for _, p := range b.pixels {
		for c := range 3 {
			sum[c] += int(p[c])
		}
	}
	n := float64(len(b.pixels))
	return colorful.Color{
		R: float64(sum[0]) / n / 255,
		G: float64(sum[1]) / n / 255,
		B: float64(sum[2]) / n / 255,
	}
}

// samplePixels shrinks img and returns its opaque, non-white pixels.
func samplePixels(img image.Image) []pixel {
	small := imaging.Fit(img, sampleSize, sampleSize, imaging.Box)

	pixels := make([]pixel, 0, len(small.Pix)/4)
	for i := 0; i+3 < len(small.Pix); i += 4 {
		r, g, b, a := small.Pix[i], small.Pix[i+1], small.Pix[i+2], small.Pix[i+3]
		if a < minAlpha {
			continue
		}
		if r > whiteCeiling && g > whiteCeiling && b > whiteCeiling {
			continue
		}
		pixels = append(pixels, pixel{r, g, b})
	}
	return pixels
}

// Dominant returns the average color of the most populated median-cut box.
func Dominant(img image.Image) (colorful.Color, error) {
	if img == nil || img.Bounds().Empty() {
		return colorful.Color{}, fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}

	pixels := samplePixels(img)
	if len(pixels) == 0 {
		return colorful.Color{}, ErrNoColor
	}

	boxes := []*box{newBox(pixels)}
	for splits := 0; len(boxes) < maxBoxes; splits++ {
		byVolume := splits >= maxBoxes*3/4
		idx := -1
		var best int
		for i, b := range boxes {
			if !b.splittable() {
				continue
			}
			score := len(b.pixels)
			if byVolume {
				score *= b.volume()
			}
			if idx < 0 || score > best {
				idx, best = i, score
			}
		}
		if idx < 0 {
			break
		}

		left, right := boxes[idx].split()
		boxes[idx] = left
		boxes = append(boxes, right)
	}

	winner := boxes[0]
	for _, b := range boxes[1:] {
		if len(b.pixels) > len(winner.pixels) {
			winner = b
		}
	}
	return winner.average(), nil
}

// AdjustForPhase darkens c for Focus so its brightest channel is at most [FocusCeiling].
// Break returns c unchanged.
func AdjustForPhase(c colorful.Color, phase timer.Phase) colorful.Color {
	if phase != timer.Focus {
		return c
	}
	m := max(c.R, c.G, c.B)
	if m <= FocusCeiling {
		return c
	}
	k := FocusCeiling / m
	return colorful.Color{R: c.R * k, G: c.G * k, B: c.B * k}
}

// ContrastText returns black text for backgrounds with YIQ luminance of at least 128 and
// white otherwise. Unparseable input gets white.
func ContrastText(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return TextLight
	}
	r, g, b := c.RGB255()
	yiq := (float64(r)*299 + float64(g)*587 + float64(b)*114) / 1000
	if yiq >= 128 {
		return TextDark
	}
	return TextLight
}

// Swatch pairs the phase-adjusted background with its text color. Focus backgrounds are
// darkened, so Focus text is always white; Break text follows [ContrastText].
func Swatch(c colorful.Color, phase timer.Phase) models.Swatch {
	bg := AdjustForPhase(c, phase).Clamped().Hex()
	if phase == timer.Focus {
		return models.Swatch{Background: bg, Text: TextLight}
	}
	return models.Swatch{Background: bg, Text: ContrastText(bg)}
}

// ThemeFor builds both phase swatches from a dominant color.
func ThemeFor(dominant colorful.Color) *models.Theme {
	return &models.Theme{
		Dominant: dominant.Clamped().Hex(),
		Focus:    Swatch(dominant, timer.Focus),
		Break:    Swatch(dominant, timer.Break),
	}
}
