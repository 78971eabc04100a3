// Package notify carries security notifications from the engine to a
// caller-provided sink. Delivery is fire-and-forget: the engine decides only
// when to fire, never how messages reach the subject.
package notify

import (
	"context"
	"time"
)

// Kind names the security event a notification reports.
type Kind string

const (
	// KindLockout fires once per lockout episode, on the strike that
	// reaches the threshold.
	KindLockout Kind = "lockout"
	// KindResetRequested fires when a reset token is issued for a subject.
	KindResetRequested Kind = "reset_requested"
)

// Notification is one security message to be delivered to a subject.
type Notification struct {
	Kind      Kind              `json:"kind"`
	SubjectID string            `json:"subject_id"`
	At        time.Time         `json:"at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Sink receives notifications. Implementations must not block indefinitely;
// the dispatcher drops on a saturated buffer rather than stalling requests.
type Sink interface {
	Deliver(ctx context.Context, n Notification)
}

// NoOpSink discards notifications.
type NoOpSink struct{}

// Deliver implements [Sink].
func (NoOpSink) Deliver(context.Context, Notification) {}
