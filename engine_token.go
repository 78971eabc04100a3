package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	"github.com/rvasily/authcore/session"
)

// IssueSessionToken signs a compact session token with jti = sessionID.
// A non-positive ttl falls back to the configured session TTL. Issuing a
// token does not create a ledger record; use [Engine.EstablishSession] for
// a full login.
func (e *Engine) IssueSessionToken(subjectID, sessionID string, ttl time.Duration) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if ttl <= 0 {
		ttl = e.config.Token.SessionTTL
	}

	raw, err := e.issuer.IssueSession(subjectID, sessionID, ttl)
	if err != nil {
		return "", err
	}
	e.metricInc(internalmetrics.MetricTokenIssued)
	return raw, nil
}

// IssueStepUpToken signs a short-lived Ed25519 token attesting recent
// second-factor verification. An empty tokenID gets a fresh identifier.
// It returns the token identifier and the compact token.
func (e *Engine) IssueStepUpToken(subjectID, tokenID string) (string, string, error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}
	if tokenID == "" {
		tokenID = uuid.NewString()
	}

	raw, err := e.issuer.IssueStepUp(subjectID, tokenID)
	if err != nil {
		return "", "", err
	}
	e.metricInc(internalmetrics.MetricStepUpIssued)
	return tokenID, raw, nil
}

// VerifyToken verifies a session token's signature and claims, then
// resolves its jti against the revocation ledger. Cryptographic validity is
// necessary but not sufficient: a verified token whose session is absent
// from the ledger fails with ErrSessionRevoked.
func (e *Engine) VerifyToken(ctx context.Context, tokenStr string) (*Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.issuer.VerifySession(tokenStr)
	if err != nil {
		e.metricInc(internalmetrics.MetricTokenRejected)
		e.auditEmit(ctx, AuditEvent{EventType: "token_rejected", Error: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := e.sessions.Get(ctx, claims.TokenID()); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(internalmetrics.MetricVerifyRevoked)
			e.auditEmit(ctx, AuditEvent{
				EventType: "token_session_revoked",
				SubjectID: claims.SubjectID(),
				SessionID: claims.TokenID(),
			})
			return nil, ErrSessionRevoked
		}
		return nil, e.internalErr("session lookup", err)
	}

	// Best effort; a failed stamp never fails verification.
	if err := e.sessions.Touch(ctx, claims.TokenID(), time.Now()); err != nil {
		e.log.Debug().Err(err).Str("session", claims.TokenID()).Msg("last-active stamp failed")
	}

	return claims, nil
}

// VerifyStepUpToken verifies a step-up token using only the Ed25519 public
// key. Step-up tokens are self-contained and not subject to the session
// ledger; their short TTL bounds exposure.
func (e *Engine) VerifyStepUpToken(tokenStr string) (*Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.issuer.VerifyStepUp(tokenStr)
	if err != nil {
		e.metricInc(internalmetrics.MetricTokenRejected)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (e *Engine) internalErr(op string, err error) error {
	e.log.Error().Err(err).Str("op", op).Msg("store fault")
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
