package otpgate

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricRegistrationBegin counts registration challenges issued.
	MetricRegistrationBegin MetricID = iota
	// MetricRegistrationSuccess counts completed registrations.
	MetricRegistrationSuccess
	// MetricRegistrationFailure counts failed registration confirms.
	MetricRegistrationFailure
	// MetricRegistrationDuplicate counts finalize-time identity conflicts.
	MetricRegistrationDuplicate
	// MetricLoginOTPIssued counts login challenges issued.
	MetricLoginOTPIssued
	// MetricLoginOTPSuccess counts confirmed login challenges.
	MetricLoginOTPSuccess
	// MetricLoginOTPFailure counts failed login confirms.
	MetricLoginOTPFailure
	// MetricLoginOTPAttemptsExceeded counts login challenges destroyed by the
	// attempt limit.
	MetricLoginOTPAttemptsExceeded
	// MetricLoginNotApproved counts eligibility re-check rejections.
	MetricLoginNotApproved
	// MetricEmailOTPSent counts email-keyed challenges issued.
	MetricEmailOTPSent
	// MetricEmailOTPVerified counts verified email-keyed challenges.
	MetricEmailOTPVerified
	// MetricEmailOTPFailure counts failed email-keyed verifies.
	MetricEmailOTPFailure
	// MetricEmailOTPAttemptsExceeded counts email-keyed challenges destroyed
	// by the attempt limit.
	MetricEmailOTPAttemptsExceeded
	// MetricNotifyDispatched counts codes handed to the notifier.
	MetricNotifyDispatched
	// MetricNotifyFailed counts notifier delivery failures (logged, never
	// propagated).
	MetricNotifyFailed

	metricIDCount
)

// Metrics holds lock-free counters. When disabled all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a deep copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snapshot
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot.Counters[id] = m.counters[id].Load()
	}
	return snapshot
}
