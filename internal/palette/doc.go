// Package palette turns album art into the timer's colors.
//
// [Dominant] shrinks an image, drops transparent and near-white pixels, and runs a median
// cut over 5-bit channels; the most populated box's average color wins. [ThemeFor] derives
// the per-phase swatches: Focus darkens the color so its brightest channel is at most half
// intensity, Break uses it unchanged, and [ContrastText] picks black or white text by YIQ
// luminance (a tie at 128 picks black).
//
// [Extractor] fetches art from an allowlist of image hosts and caches results by URL.
package palette
