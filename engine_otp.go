package authcore

import (
	"context"
	"errors"
	"strconv"

	"github.com/rvasily/authcore/internal/governor"
	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	"github.com/rvasily/authcore/otp"
)

// ProvisionOTP generates and stores a fresh high-entropy OTP secret for the
// subject and returns it with its enrollment URI. Re-provisioning rotates
// the secret, which immediately invalidates every code derived from the
// old one.
func (e *Engine) ProvisionOTP(ctx context.Context, subjectID string) (*OTPProvision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	prov, err := e.otp.Provision(subjectID)
	if err != nil {
		return nil, e.internalErr("otp provision", err)
	}
	if err := e.provider.SetOTPSecret(ctx, subjectID, prov.Secret); err != nil {
		return nil, e.internalErr("otp secret store", err)
	}

	e.metricInc(internalmetrics.MetricOTPProvisioned)
	e.auditEmit(ctx, AuditEvent{
		EventType: "otp_provisioned",
		SubjectID: subjectID,
		Success:   true,
	})
	return &OTPProvision{Secret: prov.Secret, URI: prov.URI}, nil
}

// ValidateOTP checks a candidate code against the subject's enrolled
// secret. The lockout governor is consulted first: a locked subject fails
// with ErrLockedOut before the code is ever compared. A code that passes is
// recorded in the replay blacklist; presenting it again within its
// time-step fails with ErrReplayedOTP. Every failed verification, whether a
// wrong code or a replay, increments the lockout counter exactly once.
func (e *Engine) ValidateOTP(ctx context.Context, subjectID, candidate string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.lockout.Check(ctx, subjectID); err != nil {
		return e.lockoutErr(ctx, subjectID, err)
	}

	secret, err := e.provider.GetOTPSecret(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return ErrSubjectNotFound
		}
		return e.internalErr("otp secret lookup", err)
	}
	if secret == "" {
		return ErrSecretNotProvisioned
	}

	ok, err := e.otp.Validate(candidate, secret)
	if err != nil {
		return e.internalErr("otp validate", err)
	}
	if !ok {
		e.metricInc(internalmetrics.MetricOTPRejected)
		if err := e.recordFailure(ctx, subjectID, "otp"); err != nil {
			return err
		}
		return ErrInvalidCredential
	}

	if err := e.otp.Consume(ctx, subjectID, candidate); err != nil {
		if errors.Is(err, otp.ErrReplayed) {
			e.metricInc(internalmetrics.MetricOTPReplayed)
			e.auditEmit(ctx, AuditEvent{
				EventType: "otp_replayed",
				SubjectID: subjectID,
			})
			if err := e.recordFailure(ctx, subjectID, "otp_replay"); err != nil {
				return err
			}
			return ErrReplayedOTP
		}
		return e.internalErr("otp consume", err)
	}

	if err := e.lockout.Reset(ctx, subjectID); err != nil {
		return e.internalErr("lockout reset", err)
	}

	e.metricInc(internalmetrics.MetricOTPValidated)
	e.auditEmit(ctx, AuditEvent{
		EventType: "otp_validated",
		SubjectID: subjectID,
		Success:   true,
	})
	return nil
}

// StepUpWithOTP validates the candidate code and, on success, issues a
// step-up token attesting the second-factor verification. It returns the
// token identifier and the compact token.
func (e *Engine) StepUpWithOTP(ctx context.Context, subjectID, candidate string) (string, string, error) {
	if e == nil {
		return "", "", ErrEngineNotReady
	}
	if err := e.ValidateOTP(ctx, subjectID, candidate); err != nil {
		return "", "", err
	}
	return e.IssueStepUpToken(subjectID, "")
}

// recordFailure is the single place failed verifications are counted, so
// no caller branch can skip or double-count a strike. The strike that
// reaches the threshold fires exactly one lockout notification.
func (e *Engine) recordFailure(ctx context.Context, subjectID, cause string) error {
	_, justLocked, err := e.lockout.RecordFailure(ctx, subjectID)
	if err != nil {
		return e.internalErr("lockout record", err)
	}
	if justLocked {
		e.metricInc(internalmetrics.MetricLockoutTriggered)
		e.notifyFire(ctx, NotifyLockout, subjectID, map[string]string{
			"cause":  cause,
			"window": e.config.Governor.LockoutWindow.String(),
		})
		e.auditEmit(ctx, AuditEvent{
			EventType: "lockout_triggered",
			SubjectID: subjectID,
			Metadata: map[string]string{
				"cause":     cause,
				"threshold": strconv.Itoa(e.config.Governor.LockoutThreshold),
			},
		})
	}
	return nil
}

func (e *Engine) lockoutErr(ctx context.Context, subjectID string, err error) error {
	if errors.Is(err, governor.ErrLockedOut) {
		e.metricInc(internalmetrics.MetricLockoutBlocked)
		e.auditEmit(ctx, AuditEvent{
			EventType: "lockout_blocked",
			SubjectID: subjectID,
		})
		return ErrLockedOut
	}
	return e.internalErr("lockout check", err)
}
