package authcore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	"github.com/rvasily/authcore/internal/stores"
)

const resetTokenBytes = 32

// BeginReset issues a single-use credential reset token for the subject and
// returns the plaintext. Only its SHA-256 is persisted; hand the plaintext
// to the subject out of band and discard it. A second request within the
// cooldown supersedes the first token; requests past the per-window cap
// fail with ErrResetCooldown.
func (e *Engine) BeginReset(ctx context.Context, subjectID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	// Confirm the subject exists before spending a cooldown slot.
	if _, err := e.provider.GetCredentialHash(ctx, subjectID); err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return "", ErrSubjectNotFound
		}
		return "", e.internalErr("reset subject lookup", err)
	}

	count, err := e.resets.CountRequest(ctx, subjectID, e.config.Reset.Cooldown)
	if err != nil {
		return "", e.internalErr("reset cooldown", err)
	}
	if count > int64(e.config.Reset.MaxPerCooldown) {
		e.metricInc(internalmetrics.MetricResetRejected)
		e.auditEmit(ctx, AuditEvent{
			EventType: "reset_cooldown",
			SubjectID: subjectID,
		})
		return "", ErrResetCooldown
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", e.internalErr("reset token entropy", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(raw)

	rec := &stores.ResetRecord{
		SubjectID: subjectID,
		TokenHash: sha256.Sum256([]byte(plaintext)),
		ExpiresAt: time.Now().Add(e.config.Reset.TTL).Unix(),
	}
	if err := e.resets.Save(ctx, rec, e.config.Reset.TTL); err != nil {
		return "", e.internalErr("reset save", err)
	}

	e.metricInc(internalmetrics.MetricResetRequested)
	e.notifyFire(ctx, NotifyResetRequested, subjectID, map[string]string{
		"expires_at": time.Unix(rec.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
	e.auditEmit(ctx, AuditEvent{
		EventType: "reset_requested",
		SubjectID: subjectID,
		Success:   true,
	})
	return plaintext, nil
}

// CompleteReset redeems a reset token and installs a new credential. On
// success the strike counter is cleared and every session for the subject
// is revoked, so tokens held by whoever triggered the reset die with the
// old credential. Any invalid, expired, consumed, or superseded token fails
// with ErrResetInvalid.
func (e *Engine) CompleteReset(ctx context.Context, subjectID, resetToken, newPlaintext string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	_, err := e.resets.Consume(ctx, subjectID, sha256.Sum256([]byte(resetToken)), e.config.Reset.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrResetNotFound),
			errors.Is(err, stores.ErrResetMismatch),
			errors.Is(err, stores.ErrResetAttemptsExceeded):
			e.metricInc(internalmetrics.MetricResetRejected)
			e.auditEmit(ctx, AuditEvent{
				EventType: "reset_rejected",
				SubjectID: subjectID,
				Error:     err.Error(),
			})
			return ErrResetInvalid
		}
		return e.internalErr("reset consume", err)
	}

	hash, err := e.hasher.Hash(newPlaintext)
	if err != nil {
		return e.internalErr("credential hash", err)
	}
	if err := e.provider.UpdateCredentialHash(ctx, subjectID, hash); err != nil {
		return e.internalErr("credential update", err)
	}

	if err := e.RevokeAllForSubject(ctx, subjectID); err != nil {
		return err
	}
	if err := e.lockout.Reset(ctx, subjectID); err != nil {
		return e.internalErr("lockout reset", err)
	}

	e.metricInc(internalmetrics.MetricResetCompleted)
	e.auditEmit(ctx, AuditEvent{
		EventType: "reset_completed",
		SubjectID: subjectID,
		Success:   true,
	})
	return nil
}
