// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Upstream service labels.
const (
	UpstreamAuth = "auth"
	UpstreamAI   = "ai"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Upstream call metrics
	ObserveUpstreamCall(upstream string, failed bool, duration time.Duration)

	// Gateway outcomes
	IncLogin(success bool)
	IncAnalyze(outcome string) // "success", "unauthorized", "forbidden", "upstream_error"

	// Alert feed metrics
	IncAlertPublished(status string) // status: "success" or "failed"
	IncAlertDelivered()
	SetFeedClients(n int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
