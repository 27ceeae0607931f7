package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveUpstreamCall is a no-op.
func (n *NoopRecorder) ObserveUpstreamCall(upstream string, failed bool, duration time.Duration) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(success bool) {}

// IncAnalyze is a no-op.
func (n *NoopRecorder) IncAnalyze(outcome string) {}

// IncAlertPublished is a no-op.
func (n *NoopRecorder) IncAlertPublished(status string) {}

// IncAlertDelivered is a no-op.
func (n *NoopRecorder) IncAlertDelivered() {}

// SetFeedClients is a no-op.
func (n *NoopRecorder) SetFeedClients(count int64) {}
