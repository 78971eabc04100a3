package authcore

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/rvasily/authcore/internal/audit"
	"github.com/rvasily/authcore/internal/governor"
	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	internalnotify "github.com/rvasily/authcore/internal/notify"
	"github.com/rvasily/authcore/internal/stores"
	"github.com/rvasily/authcore/otp"
	"github.com/rvasily/authcore/password"
	"github.com/rvasily/authcore/session"
	"github.com/rvasily/authcore/token"
)

// Engine is the credential-proof core. Construct through [Builder.Build];
// methods are safe for concurrent use afterwards. No cross-request state is
// held in process memory.
type Engine struct {
	config   Config
	issuer   *token.Issuer
	sessions *session.Store
	otp      *otp.Engine
	hasher   *password.Hasher
	lockout  *governor.Lockout
	window   *governor.SlidingWindow
	policies *governor.PolicyTable
	resets   *stores.ResetStore
	notifier *internalnotify.Dispatcher
	audit    *internalaudit.Dispatcher
	metrics  *internalmetrics.Metrics
	provider SubjectProvider
	log      zerolog.Logger
}

// Close drains and stops the notification and audit dispatchers.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifier != nil {
		e.notifier.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// NotificationsDropped reports security notifications discarded on a full
// buffer.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.notifier.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) auditEmit(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) notifyFire(ctx context.Context, kind NotificationKind, subjectID string, meta map[string]string) {
	e.notifier.Fire(ctx, Notification{
		Kind:      kind,
		SubjectID: subjectID,
		At:        time.Now(),
		Meta:      meta,
	})
}
