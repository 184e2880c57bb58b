package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("currently-playing", "204"))
	ObserveProvider("currently-playing", 204)
	after := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("currently-playing", "204"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}

	ObserveProvider("token", 0)
	if got := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("token", "error")); got < 1 {
		t.Errorf("expected transport errors under the error label, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	PaletteCacheHits.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tempo_palette_cache_hits_total") {
		t.Error("expected exposition to include tempo_palette_cache_hits_total")
	}
}
