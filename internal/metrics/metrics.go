// Package metrics holds the engine's in-process counters. Counters are
// lock-free atomics; a Snapshot is a consistent-enough point-in-time copy
// for exporters.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID uint8

const (
	MetricTokenIssued MetricID = iota
	MetricTokenRejected
	MetricStepUpIssued
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionRevokedAll
	MetricVerifyRevoked
	MetricOTPProvisioned
	MetricOTPValidated
	MetricOTPRejected
	MetricOTPReplayed
	MetricCredentialVerified
	MetricCredentialRejected
	MetricLockoutTriggered
	MetricLockoutBlocked
	MetricThrottleDelayed
	MetricThrottleRejected
	MetricResetRequested
	MetricResetCompleted
	MetricResetRejected

	// MetricIDCount is the number of defined counters, not a metric.
	MetricIDCount
)

// Config controls whether counting happens at all.
type Config struct {
	Enabled bool
}

// Metrics is the counter set. A nil or disabled Metrics is free to call.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// New creates a Metrics instance. When cfg.Enabled is false every operation
// is a no-op.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{Counters: make(map[MetricID]uint64, int(MetricIDCount))}
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		out.Counters[id] = m.counters[id].Load()
	}
	return out
}

// Name returns the exposition name for a counter.
func Name(id MetricID) string {
	switch id {
	case MetricTokenIssued:
		return "token_issued_total"
	case MetricTokenRejected:
		return "token_rejected_total"
	case MetricStepUpIssued:
		return "stepup_issued_total"
	case MetricSessionCreated:
		return "session_created_total"
	case MetricSessionRevoked:
		return "session_revoked_total"
	case MetricSessionRevokedAll:
		return "session_revoked_all_total"
	case MetricVerifyRevoked:
		return "verify_revoked_total"
	case MetricOTPProvisioned:
		return "otp_provisioned_total"
	case MetricOTPValidated:
		return "otp_validated_total"
	case MetricOTPRejected:
		return "otp_rejected_total"
	case MetricOTPReplayed:
		return "otp_replayed_total"
	case MetricCredentialVerified:
		return "credential_verified_total"
	case MetricCredentialRejected:
		return "credential_rejected_total"
	case MetricLockoutTriggered:
		return "lockout_triggered_total"
	case MetricLockoutBlocked:
		return "lockout_blocked_total"
	case MetricThrottleDelayed:
		return "throttle_delayed_total"
	case MetricThrottleRejected:
		return "throttle_rejected_total"
	case MetricResetRequested:
		return "reset_requested_total"
	case MetricResetCompleted:
		return "reset_completed_total"
	case MetricResetRejected:
		return "reset_rejected_total"
	default:
		return "unknown"
	}
}
