package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/rvasily/authcore/internal/audit"
	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	internalnotify "github.com/rvasily/authcore/internal/notify"
	"github.com/rvasily/authcore/token"
)

// Claims is the validated payload of a verified token: the seven registered
// claims, with jti carrying the session identifier and sub the subject.
type Claims = token.Claims

// RequestMeta carries the opaque request-context strings stamped into a
// session record at login. All fields are optional.
type RequestMeta struct {
	Device    string
	IP        string
	UserAgent string
}

// SessionInfo is a read-only view of one login episode.
type SessionInfo struct {
	SessionID  string
	SubjectID  string
	Device     string
	IP         string
	UserAgent  string
	LastActive time.Time
	SignedIn   time.Time
}

// Login is returned by [Engine.EstablishSession]: the new session
// identifier and its signed token.
type Login struct {
	SessionID string
	Token     string
}

// OTPProvision holds a freshly generated OTP secret and its otpauth://
// enrollment URI.
type OTPProvision struct {
	Secret string
	URI    string
}

// SubjectProvider is the caller's durable store of subjects. The engine
// performs point reads and writes only and owns no schema.
//
// GetCredentialHash and GetOTPSecret return ErrSubjectNotFound for unknown
// subjects; GetOTPSecret returns an empty string (and nil error) when the
// subject exists but has no enrolled OTP secret.
type SubjectProvider interface {
	GetCredentialHash(ctx context.Context, subjectID string) (string, error)
	UpdateCredentialHash(ctx context.Context, subjectID, newHash string) error
	GetOTPSecret(ctx context.Context, subjectID string) (string, error)
	SetOTPSecret(ctx context.Context, subjectID, secret string) error
}

// Notification is one security message to be delivered to a subject.
type Notification = internalnotify.Notification

// NotificationKind names the event a notification reports.
type NotificationKind = internalnotify.Kind

const (
	// NotifyLockout fires once per lockout episode.
	NotifyLockout = internalnotify.KindLockout
	// NotifyResetRequested fires when a reset token is issued.
	NotifyResetRequested = internalnotify.KindResetRequested
)

// NotificationSink receives security notifications, fire-and-forget. The
// engine decides only when to fire; delivery is the caller's concern.
type NotificationSink = internalnotify.Sink

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpAuditSink silently discards audit events.
type NoOpAuditSink = internalaudit.NoOpSink

// ChannelAuditSink is a buffered channel-based [AuditSink].
type ChannelAuditSink = internalaudit.ChannelSink

// JSONWriterAuditSink writes JSON-encoded audit events, one per line.
type JSONWriterAuditSink = internalaudit.JSONWriterSink

// NewChannelAuditSink creates a [ChannelAuditSink] with the given capacity.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink creates a [JSONWriterAuditSink] writing to w.
func NewJSONWriterAuditSink(w io.Writer) *JSONWriterAuditSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies one engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricTokenIssued        = internalmetrics.MetricTokenIssued
	MetricTokenRejected      = internalmetrics.MetricTokenRejected
	MetricStepUpIssued       = internalmetrics.MetricStepUpIssued
	MetricSessionCreated     = internalmetrics.MetricSessionCreated
	MetricSessionRevoked     = internalmetrics.MetricSessionRevoked
	MetricSessionRevokedAll  = internalmetrics.MetricSessionRevokedAll
	MetricVerifyRevoked      = internalmetrics.MetricVerifyRevoked
	MetricOTPProvisioned     = internalmetrics.MetricOTPProvisioned
	MetricOTPValidated       = internalmetrics.MetricOTPValidated
	MetricOTPRejected        = internalmetrics.MetricOTPRejected
	MetricOTPReplayed        = internalmetrics.MetricOTPReplayed
	MetricCredentialVerified = internalmetrics.MetricCredentialVerified
	MetricCredentialRejected = internalmetrics.MetricCredentialRejected
	MetricLockoutTriggered   = internalmetrics.MetricLockoutTriggered
	MetricLockoutBlocked     = internalmetrics.MetricLockoutBlocked
	MetricThrottleDelayed    = internalmetrics.MetricThrottleDelayed
	MetricThrottleRejected   = internalmetrics.MetricThrottleRejected
	MetricResetRequested     = internalmetrics.MetricResetRequested
	MetricResetCompleted     = internalmetrics.MetricResetCompleted
	MetricResetRejected      = internalmetrics.MetricResetRejected
)

// MetricsSnapshot is a point-in-time copy of all engine counters.
type MetricsSnapshot = internalmetrics.Snapshot

// MetricName returns the exposition name for a counter, for exporters.
func MetricName(id MetricID) string {
	return internalmetrics.Name(id)
}
