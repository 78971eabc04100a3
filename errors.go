package authcore

import "errors"

var (
	// ErrInvalidToken is returned by token verification for bad signatures,
	// wrong audience or issuer, expired tokens, and not-yet-valid tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionRevoked is returned when a token verifies cryptographically
	// but its session identifier is absent from the revocation ledger.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrInvalidCredential is returned for a wrong password or a wrong
	// one-time code.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrSubjectNotFound is returned when the subject provider has no record
	// for the identifier. Collapsing it into ErrInvalidCredential is a
	// presentation choice left to the orchestration layer.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrRateLimited is returned when a caller key exceeds the hard ceiling
	// of its route class after proportional delays have been exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrLockedOut is returned once the failed-attempt threshold is reached;
	// further attempts fail without invoking the underlying verifier until
	// the lockout window expires.
	ErrLockedOut = errors.New("locked out")
	// ErrReplayedOTP is returned when a one-time code that already passed
	// validation is presented again within its time-step.
	ErrReplayedOTP = errors.New("one-time code replayed")
	// ErrSecretNotProvisioned is returned when OTP validation is requested
	// for a subject that has no enrolled secret.
	ErrSecretNotProvisioned = errors.New("otp secret not provisioned")
	// ErrResetInvalid is returned when a reset token is unknown, expired,
	// already consumed, or does not match.
	ErrResetInvalid = errors.New("reset token invalid")
	// ErrResetCooldown is returned when a second reset is requested before
	// the cooldown window of the previous request has elapsed.
	ErrResetCooldown = errors.New("reset requested too recently")
	// ErrInternal wraps faults from the underlying stores. Driver errors are
	// never surfaced raw.
	ErrInternal = errors.New("internal failure")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
