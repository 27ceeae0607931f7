package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthCalls               uint64
	AuthCallsFailed         uint64
	AICalls                 uint64
	AICallsFailed           uint64
	UpstreamDurationCount   uint64
	UpstreamDurationTotalNs int64

	LoginSuccess uint64
	LoginFailed  uint64

	AnalyzeSuccess       uint64
	AnalyzeUnauthorized  uint64
	AnalyzeForbidden     uint64
	AnalyzeUpstreamError uint64

	AlertsPublished     uint64
	AlertsPublishFailed uint64
	AlertsDelivered     uint64
	FeedClients         int64
}

// InMemoryRecorder stores metrics in memory and backs GET /metrics.
type InMemoryRecorder struct {
	authCalls               uint64
	authCallsFailed         uint64
	aiCalls                 uint64
	aiCallsFailed           uint64
	upstreamDurationCount   uint64
	upstreamDurationTotalNs int64

	loginSuccess uint64
	loginFailed  uint64

	analyzeSuccess       uint64
	analyzeUnauthorized  uint64
	analyzeForbidden     uint64
	analyzeUpstreamError uint64

	alertsPublished     uint64
	alertsPublishFailed uint64
	alertsDelivered     uint64
	feedClients         int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthCalls:               atomic.LoadUint64(&m.authCalls),
		AuthCallsFailed:         atomic.LoadUint64(&m.authCallsFailed),
		AICalls:                 atomic.LoadUint64(&m.aiCalls),
		AICallsFailed:           atomic.LoadUint64(&m.aiCallsFailed),
		UpstreamDurationCount:   atomic.LoadUint64(&m.upstreamDurationCount),
		UpstreamDurationTotalNs: atomic.LoadInt64(&m.upstreamDurationTotalNs),
		LoginSuccess:            atomic.LoadUint64(&m.loginSuccess),
		LoginFailed:             atomic.LoadUint64(&m.loginFailed),
		AnalyzeSuccess:          atomic.LoadUint64(&m.analyzeSuccess),
		AnalyzeUnauthorized:     atomic.LoadUint64(&m.analyzeUnauthorized),
		AnalyzeForbidden:        atomic.LoadUint64(&m.analyzeForbidden),
		AnalyzeUpstreamError:    atomic.LoadUint64(&m.analyzeUpstreamError),
		AlertsPublished:         atomic.LoadUint64(&m.alertsPublished),
		AlertsPublishFailed:     atomic.LoadUint64(&m.alertsPublishFailed),
		AlertsDelivered:         atomic.LoadUint64(&m.alertsDelivered),
		FeedClients:             atomic.LoadInt64(&m.feedClients),
	}
}

// ObserveUpstreamCall records one call to an upstream service.
func (m *InMemoryRecorder) ObserveUpstreamCall(upstream string, failed bool, duration time.Duration) {
	switch upstream {
	case UpstreamAuth:
		atomic.AddUint64(&m.authCalls, 1)
		if failed {
			atomic.AddUint64(&m.authCallsFailed, 1)
		}
	case UpstreamAI:
		atomic.AddUint64(&m.aiCalls, 1)
		if failed {
			atomic.AddUint64(&m.aiCallsFailed, 1)
		}
	}
	atomic.AddUint64(&m.upstreamDurationCount, 1)
	atomic.AddInt64(&m.upstreamDurationTotalNs, duration.Nanoseconds())
}

// IncLogin increments the login counter for the outcome.
func (m *InMemoryRecorder) IncLogin(success bool) {
	if success {
		atomic.AddUint64(&m.loginSuccess, 1)
		return
	}
	atomic.AddUint64(&m.loginFailed, 1)
}

// IncAnalyze increments the analyze counter for outcome.
func (m *InMemoryRecorder) IncAnalyze(outcome string) {
	switch outcome {
	case "success":
		atomic.AddUint64(&m.analyzeSuccess, 1)
	case "unauthorized":
		atomic.AddUint64(&m.analyzeUnauthorized, 1)
	case "forbidden":
		atomic.AddUint64(&m.analyzeForbidden, 1)
	case "upstream_error":
		atomic.AddUint64(&m.analyzeUpstreamError, 1)
	}
}

// IncAlertPublished increments the alert publish counter.
func (m *InMemoryRecorder) IncAlertPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.alertsPublished, 1)
		return
	}
	atomic.AddUint64(&m.alertsPublishFailed, 1)
}

// IncAlertDelivered increments the count of alerts written to feed clients.
func (m *InMemoryRecorder) IncAlertDelivered() {
	atomic.AddUint64(&m.alertsDelivered, 1)
}

// SetFeedClients records the number of connected feed clients.
func (m *InMemoryRecorder) SetFeedClients(n int64) {
	atomic.StoreInt64(&m.feedClients, n)
}
