package palette

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/tempo/internal/shared"
)

func artServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(32, 32, color.NRGBA{R: 255, G: 0, B: 0, A: 255})); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/image/red", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/image/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not an image"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestExtractor(t *testing.T) {
	ctx := context.Background()
	srv, hits := artServer(t)
	cfg := shared.PaletteConfig{Enabled: true, CacheSize: 4, AllowedHosts: []string{"127.0.0.1"}}

	t.Run("Theme", func(t *testing.T) {
		e, err := NewExtractor(cfg)
		if err != nil {
			t.Fatalf("NewExtractor() error = %v", err)
		}

		theme, err := e.Theme(ctx, srv.URL+"/image/red")
		if err != nil {
			t.Fatalf("Theme() error = %v", err)
		}
		if theme.Dominant != "#ff0000" {
			t.Errorf("expected #ff0000, got %s", theme.Dominant)
		}
		if theme.Focus.Background != "#800000" || theme.Focus.Text != TextLight {
			t.Errorf("unexpected focus swatch %+v", theme.Focus)
		}
	})

	t.Run("caches by URL", func(t *testing.T) {
		e, _ := NewExtractor(cfg)
		before := hits.Load()

		for range 3 {
			if _, err := e.DominantURL(ctx, srv.URL+"/image/red"); err != nil {
				t.Fatalf("DominantURL() error = %v", err)
			}
		}
		if got := hits.Load() - before; got != 1 {
			t.Errorf("expected 1 fetch, got %d", got)
		}
	})

	t.Run("rejects hosts outside allowlist", func(t *testing.T) {
		e, _ := NewExtractor(shared.PaletteConfig{AllowedHosts: []string{"i.scdn.co"}})

		_, err := e.DominantURL(ctx, srv.URL+"/image/red")
		if !errors.Is(err, shared.ErrImageRejected) {
			t.Errorf("expected ErrImageRejected, got %v", err)
		}
	})

	t.Run("rejects other schemes", func(t *testing.T) {
		e, _ := NewExtractor(cfg)
		if e.Allowed("file:///etc/passwd") {
			t.Error("file URLs must not be allowed")
		}
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		small := cfg
		small.MaxBytes = 16
		e, _ := NewExtractor(small)

		_, err := e.DominantURL(ctx, srv.URL+"/image/red")
		if !errors.Is(err, shared.ErrImageRejected) {
			t.Errorf("expected ErrImageRejected, got %v", err)
		}
	})

	t.Run("rejects undecodable bodies", func(t *testing.T) {
		e, _ := NewExtractor(cfg)

		_, err := e.DominantURL(ctx, srv.URL+"/image/garbage")
		if !errors.Is(err, shared.ErrImageRejected) {
			t.Errorf("expected ErrImageRejected, got %v", err)
		}
	})

	t.Run("missing image", func(t *testing.T) {
		e, _ := NewExtractor(cfg)

		_, err := e.DominantURL(ctx, srv.URL+"/image/none")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestDominantFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solid(16, 16, color.NRGBA{R: 0, G: 0, B: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c, err := DominantFile(path)
	if err != nil {
		t.Fatalf("DominantFile() error = %v", err)
	}
	if c.Hex() != "#0000ff" {
		t.Errorf("expected #0000ff, got %s", c.Hex())
	}

	if _, err := DominantFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
