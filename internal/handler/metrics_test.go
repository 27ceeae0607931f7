package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/silentcry/silentcry/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	rec := metrics.NewInMemory()
	rec.ObserveUpstreamCall(metrics.UpstreamAuth, false, 10*time.Millisecond)
	rec.ObserveUpstreamCall(metrics.UpstreamAI, true, 20*time.Millisecond)
	rec.IncLogin(true)
	rec.IncAnalyze("forbidden")
	rec.IncAlertPublished("success")
	rec.SetFeedClients(3)

	h := NewMetricsHandler(rec)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected Content-Type: %s", ct)
	}

	body := w.Body.String()
	for _, line := range []string{
		`silentcry_upstream_calls_total{upstream="auth",status="ok"} 1`,
		`silentcry_upstream_calls_total{upstream="ai",status="error"} 1`,
		`silentcry_upstream_duration_seconds_count 2`,
		`silentcry_upstream_duration_seconds_sum 0.030000`,
		`silentcry_login_total{status="success"} 1`,
		`silentcry_analyze_total{outcome="forbidden"} 1`,
		`silentcry_alerts_published_total{status="success"} 1`,
		`silentcry_feed_clients 3`,
	} {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("missing metric line %q", line)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}
