package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	"github.com/rvasily/authcore/session"
)

// EstablishSession records a new login episode for the subject and returns
// its signed token. Any prior session of the same subject is superseded
// atomically: concurrent logins converge on exactly one surviving record.
func (e *Engine) EstablishSession(ctx context.Context, subjectID string, meta RequestMeta) (*Login, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sessionID := uuid.NewString()
	now := time.Now()
	rec := &session.Record{
		SessionID:  sessionID,
		SubjectID:  subjectID,
		Device:     meta.Device,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		LastActive: now.Unix(),
		SignedIn:   now.Unix(),
	}

	if err := e.sessions.Put(ctx, rec, e.config.Token.SessionTTL); err != nil {
		return nil, e.internalErr("session put", err)
	}

	raw, err := e.IssueSessionToken(subjectID, sessionID, e.config.Token.SessionTTL)
	if err != nil {
		return nil, err
	}

	e.metricInc(internalmetrics.MetricSessionCreated)
	e.auditEmit(ctx, AuditEvent{
		EventType: "session_established",
		SubjectID: subjectID,
		SessionID: sessionID,
		IP:        meta.IP,
		Success:   true,
	})

	return &Login{SessionID: sessionID, Token: raw}, nil
}

// GetSession resolves a session identifier against the ledger.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	rec, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, e.internalErr("session get", err)
	}

	return &SessionInfo{
		SessionID:  rec.SessionID,
		SubjectID:  rec.SubjectID,
		Device:     rec.Device,
		IP:         rec.IP,
		UserAgent:  rec.UserAgent,
		LastActive: time.Unix(rec.LastActive, 0),
		SignedIn:   time.Unix(rec.SignedIn, 0),
	}, nil
}

// RevokeSession revokes a single session (logout). The revocation is
// acknowledged by the store before this returns, so every worker observes
// it.
func (e *Engine) RevokeSession(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return e.internalErr("session delete", err)
	}

	e.metricInc(internalmetrics.MetricSessionRevoked)
	e.auditEmit(ctx, AuditEvent{
		EventType: "session_revoked",
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// RevokeAllForSubject revokes the subject's live session (password change,
// ban, logout everywhere). Tokens referencing revoked sessions keep
// verifying cryptographically but fail [Engine.VerifyToken].
func (e *Engine) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.sessions.DeleteAllForSubject(ctx, subjectID); err != nil {
		return e.internalErr("session delete all", err)
	}

	e.metricInc(internalmetrics.MetricSessionRevokedAll)
	e.auditEmit(ctx, AuditEvent{
		EventType: "subject_sessions_revoked",
		SubjectID: subjectID,
		Success:   true,
	})
	return nil
}
