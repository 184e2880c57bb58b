package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLogLevel(t *testing.T) {
	tt := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"nonsense", log.InfoLevel},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseLogLevel(tc.in); got != tc.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce(16)
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	b, _ := GenerateNonce(16)

	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("expected two nonces to differ")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hello", "sid", "abc")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestBrowserCommand(t *testing.T) {
	tt := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{"darwin", "open", false},
		{"linux", "xdg-open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			argv, err := browserCommand(tc.goos, "https://accounts.spotify.com")
			if (err != nil) != tc.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && argv[0] != tc.want {
				t.Errorf("expected %s, got %s", tc.want, argv[0])
			}
		})
	}
}
