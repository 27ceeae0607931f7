package handler

import (
	"fmt"
	"net/http"

	"github.com/silentcry/silentcry/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "silentcry_upstream_calls_total{upstream=\"auth\",status=\"ok\"} %d\n", snap.AuthCalls-snap.AuthCallsFailed)
	writeMetric(w, "silentcry_upstream_calls_total{upstream=\"auth\",status=\"error\"} %d\n", snap.AuthCallsFailed)
	writeMetric(w, "silentcry_upstream_calls_total{upstream=\"ai\",status=\"ok\"} %d\n", snap.AICalls-snap.AICallsFailed)
	writeMetric(w, "silentcry_upstream_calls_total{upstream=\"ai\",status=\"error\"} %d\n", snap.AICallsFailed)
	writeMetric(w, "silentcry_upstream_duration_seconds_count %d\n", snap.UpstreamDurationCount)
	writeMetric(w, "silentcry_upstream_duration_seconds_sum %.6f\n", float64(snap.UpstreamDurationTotalNs)/1e9)

	writeMetric(w, "silentcry_login_total{status=\"success\"} %d\n", snap.LoginSuccess)
	writeMetric(w, "silentcry_login_total{status=\"failed\"} %d\n", snap.LoginFailed)

	writeMetric(w, "silentcry_analyze_total{outcome=\"success\"} %d\n", snap.AnalyzeSuccess)
	writeMetric(w, "silentcry_analyze_total{outcome=\"unauthorized\"} %d\n", snap.AnalyzeUnauthorized)
	writeMetric(w, "silentcry_analyze_total{outcome=\"forbidden\"} %d\n", snap.AnalyzeForbidden)
	writeMetric(w, "silentcry_analyze_total{outcome=\"upstream_error\"} %d\n", snap.AnalyzeUpstreamError)

	writeMetric(w, "silentcry_alerts_published_total{status=\"success\"} %d\n", snap.AlertsPublished)
	writeMetric(w, "silentcry_alerts_published_total{status=\"failed\"} %d\n", snap.AlertsPublishFailed)
	writeMetric(w, "silentcry_alerts_delivered_total %d\n", snap.AlertsDelivered)
	writeMetric(w, "silentcry_feed_clients %d\n", snap.FeedClients)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
