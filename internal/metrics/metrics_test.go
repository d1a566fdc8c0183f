package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Store.Example.com/p/game", "store.example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveCounters(t *testing.T) {
	Init()
	Init()

	beforeEnriched := testutil.ToFloat64(enrichmentsTotal.WithLabelValues("enriched"))
	ObserveEnrichment("enriched")
	if got := testutil.ToFloat64(enrichmentsTotal.WithLabelValues("enriched")); got != beforeEnriched+1 {
		t.Errorf("expected enrichment counter to grow by 1, got %f -> %f", beforeEnriched, got)
	}

	beforeCreated := testutil.ToFloat64(upsertsTotal.WithLabelValues("created"))
	beforeUpdated := testutil.ToFloat64(upsertsTotal.WithLabelValues("updated"))
	ObserveUpserts(2, 3)
	if got := testutil.ToFloat64(upsertsTotal.WithLabelValues("created")); got != beforeCreated+2 {
		t.Errorf("expected created counter to grow by 2, got %f", got-beforeCreated)
	}
	if got := testutil.ToFloat64(upsertsTotal.WithLabelValues("updated")); got != beforeUpdated+3 {
		t.Errorf("expected updated counter to grow by 3, got %f", got-beforeUpdated)
	}

	beforeRuns := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("succeeded"))
	ObserveRun("succeeded", time.Second)
	if got := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("succeeded")); got != beforeRuns+1 {
		t.Errorf("expected run counter to grow by 1, got %f", got-beforeRuns)
	}

	beforeBytes := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("metrics.example.com"))
	ObserveFetch("https://metrics.example.com/p/x", "ok", 128)
	if got := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("metrics.example.com")); got != beforeBytes+128 {
		t.Errorf("expected byte counter to grow by 128, got %f", got-beforeBytes)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://store.epicgames.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
