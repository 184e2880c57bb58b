package palette

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tempo/internal/metrics"
	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize = 128
	defaultMaxBytes  = 4 << 20
	fetchTimeout     = 5 * time.Second
)

// Extractor fetches album art and computes its theme, caching dominant colors by URL.
type Extractor struct {
	client   *http.Client
	cache    *lru.Cache[string, colorful.Color]
	group    singleflight.Group
	allowed  map[string]struct{}
	maxBytes int64
	logger   *log.Logger
}

// ExtractorOption customizes an [Extractor].
type ExtractorOption func(*Extractor)

// WithClient replaces the image fetch client.
func WithClient(c *http.Client) ExtractorOption {
	return func(e *Extractor) { e.client = c }
}

// WithLogger sets the extractor's logger.
func WithLogger(l *log.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor builds an [Extractor] from the [palette] config table.
func NewExtractor(cfg shared.PaletteConfig, opts ...ExtractorOption) (*Extractor, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, colorful.Color](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create palette cache: %w", err)
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	e := &Extractor{
		client:   &http.Client{Timeout: fetchTimeout},
		cache:    cache,
		allowed:  allowed,
		maxBytes: maxBytes,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Theme returns the theme for the art at imageURL.
func (e *Extractor) Theme(ctx context.Context, imageURL string) (*models.Theme, error) {
	c, err := e.DominantURL(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return ThemeFor(c), nil
}

// DominantURL returns the dominant color of the image at imageURL, from cache when possible.
// Concurrent lookups of one URL share a single fetch.
func (e *Extractor) DominantURL(ctx context.Context, imageURL string) (colorful.Color, error) {
	if c, ok := e.cache.Get(imageURL); ok {
		metrics.PaletteCacheHits.Inc()
		return c, nil
	}
	metrics.PaletteCacheMisses.Inc()

	v, err, _ := e.group.Do(imageURL, func() (any, error) {
		img, err := e.fetch(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		c, err := Dominant(img)
		if err != nil {
			metrics.PaletteFetchErrors.WithLabelValues("decode").Inc()
			return nil, err
		}
		e.cache.Add(imageURL, c)
		return c, nil
	})
	if err != nil {
		return colorful.Color{}, err
	}
	return v.(colorful.Color), nil
}

// Allowed reports whether imageURL points at an allowlisted host over http(s).
func (e *Extractor) Allowed(imageURL string) bool {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return false
	}
	_, ok := e.allowed[strings.ToLower(u.Hostname())]
	return ok
}

func (e *Extractor) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	if !e.Allowed(imageURL) {
		metrics.PaletteFetchErrors.WithLabelValues("host").Inc()
		return nil, fmt.Errorf("%w: host not allowed: %s", shared.ErrImageRejected, imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := e.client.Do(req)
	if err != nil {
		metrics.PaletteFetchErrors.WithLabelValues("fetch").Inc()
		return nil, fmt.Errorf("failed to fetch album art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PaletteFetchErrors.WithLabelValues("status").Inc()
		return nil, fmt.Errorf("%w: album art status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if resp.ContentLength > e.maxBytes {
		metrics.PaletteFetchErrors.WithLabelValues("size").Inc()
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", shared.ErrImageRejected, resp.ContentLength, e.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		metrics.PaletteFetchErrors.WithLabelValues("fetch").Inc()
		return nil, fmt.Errorf("failed to read album art: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		metrics.PaletteFetchErrors.WithLabelValues("size").Inc()
		return nil, fmt.Errorf("%w: body exceeds limit %d", shared.ErrImageRejected, e.maxBytes)
	}

	e.logger.Debug("fetched album art", "url", imageURL, "bytes", len(data))
	return Decode(bytes.NewReader(data))
}

// Decode reads a jpeg, png, gif or webp image, honoring EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", shared.ErrImageRejected, err)
	}
	return img, nil
}

// DominantFile computes the dominant color of a local image file.
func DominantFile(path string) (colorful.Color, error) {
	f, err := os.Open(path)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return colorful.Color{}, err
	}
	return Dominant(img)
}
