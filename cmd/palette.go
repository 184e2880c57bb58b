package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/palette"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/urfave/cli/v3"
)

// Palette prints the theme for an image file or an allowlisted URL.
func (r *Runner) Palette(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: image file or URL", shared.ErrMissingArgument)
	}

	var (
		dominant colorful.Color
		err      error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		extractor, xerr := palette.NewExtractor(r.cfg().Palette, palette.WithLogger(r.logger))
		if xerr != nil {
			return xerr
		}
		dominant, err = extractor.DominantURL(ctx, source)
	} else {
		dominant, err = palette.DominantFile(source)
	}
	if err != nil {
		return fmt.Errorf("failed to extract colors: %w", err)
	}

	theme := palette.ThemeFor(dominant)
	if cmd.Bool("json") {
		return r.writeJSON(theme, true)
	}

	r.writePlain("dominant  %s\n", theme.Dominant)
	r.writeSwatch("focus", theme.Focus)
	r.writeSwatch("break", theme.Break)
	return nil
}

func (r *Runner) writeSwatch(name string, s models.Swatch) {
	r.writePlain("%-9s background %s  text %s\n", name, s.Background, s.Text)
}
