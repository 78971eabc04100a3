package authcore

import (
	"context"
	"errors"

	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	"github.com/rvasily/authcore/password"
)

// HashCredential derives a salted Argon2id hash for the plaintext
// credential, in PHC string format ready for the subject store.
func (e *Engine) HashCredential(plaintext string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return "", e.internalErr("credential hash", err)
	}
	return hash, nil
}

// VerifyCredential checks a plaintext credential against the subject's
// stored hash. A locked subject fails with ErrLockedOut before the hash is
// ever consulted; an unknown subject fails with ErrSubjectNotFound without
// counting a strike. A mismatch counts exactly one strike and returns
// ErrInvalidCredential; a match resets the strike counter and cancels any
// outstanding reset token for the subject.
func (e *Engine) VerifyCredential(ctx context.Context, subjectID, plaintext string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.lockout.Check(ctx, subjectID); err != nil {
		return e.lockoutErr(ctx, subjectID, err)
	}

	hash, err := e.provider.GetCredentialHash(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return ErrSubjectNotFound
		}
		return e.internalErr("credential lookup", err)
	}

	ok, err := e.hasher.Verify(hash, plaintext)
	if err != nil {
		return e.internalErr("credential verify", err)
	}
	if !ok {
		e.metricInc(internalmetrics.MetricCredentialRejected)
		e.auditEmit(ctx, AuditEvent{
			EventType: "credential_rejected",
			SubjectID: subjectID,
		})
		if err := e.recordFailure(ctx, subjectID, "credential"); err != nil {
			return err
		}
		return ErrInvalidCredential
	}

	if err := e.lockout.Reset(ctx, subjectID); err != nil {
		return e.internalErr("lockout reset", err)
	}

	// The subject just proved the credential, so a pending reset token is
	// stale; kill it rather than leave it redeemable out of band.
	if err := e.resets.Clear(ctx, subjectID); err != nil {
		e.log.Debug().Err(err).Str("subject", subjectID).Msg("stale reset clear failed")
	}

	e.metricInc(internalmetrics.MetricCredentialVerified)
	e.auditEmit(ctx, AuditEvent{
		EventType: "credential_verified",
		SubjectID: subjectID,
		Success:   true,
	})
	return nil
}

// SafeCompare reports whether two secret strings are equal in time
// independent of where they differ. Use it for any secret-bearing
// comparison outside the engine, such as API keys.
func SafeCompare(a, b string) bool {
	return password.SafeCompare(a, b)
}
