package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestResetFlowInstallsNewCredential(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected plaintext reset token")
	}

	if err := engine.CompleteReset(ctx, "u1", token, "new-password"); err != nil {
		t.Fatalf("complete reset failed: %v", err)
	}

	if err := engine.VerifyCredential(ctx, "u1", "old-password"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("old password must be dead, got %v", err)
	}
	if err := engine.VerifyCredential(ctx, "u1", "new-password"); err != nil {
		t.Fatalf("new password must verify: %v", err)
	}
}

func TestResetRevokesAllSessions(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	login, err := engine.EstablishSession(ctx, "u1", RequestMeta{})
	if err != nil {
		t.Fatalf("establish failed: %v", err)
	}

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", token, "new-password"); err != nil {
		t.Fatalf("complete reset failed: %v", err)
	}

	if _, err := engine.VerifyToken(ctx, login.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after reset, got %v", err)
	}
}

func TestResetClearsLockout(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	for i := 0; i < cfg.Governor.LockoutThreshold; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong")
	}
	if err := engine.VerifyCredential(ctx, "u1", "old-password"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", token, "new-password"); err != nil {
		t.Fatalf("complete reset failed: %v", err)
	}

	if err := engine.VerifyCredential(ctx, "u1", "new-password"); err != nil {
		t.Fatalf("verify after reset failed: %v", err)
	}
}

func TestResetWrongToken(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	if _, err := engine.BeginReset(ctx, "u1"); err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}

	if err := engine.CompleteReset(ctx, "u1", "not-the-token", "new-password"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid, got %v", err)
	}
	// Credential untouched.
	if err := engine.VerifyCredential(ctx, "u1", "old-password"); err != nil {
		t.Fatalf("old password must still verify: %v", err)
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", token, "new-password"); err != nil {
		t.Fatalf("complete reset failed: %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", token, "another-password"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid on reuse, got %v", err)
	}
}

func TestResetSecondRequestSupersedesFirst(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	first, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("first reset failed: %v", err)
	}
	second, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("second reset failed: %v", err)
	}

	if err := engine.CompleteReset(ctx, "u1", first, "new-password"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("superseded token must be invalid, got %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", second, "new-password"); err != nil {
		t.Fatalf("current token must redeem: %v", err)
	}
}

func TestSuccessfulVerifyCancelsOutstandingReset(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}

	// The subject remembers the password after all; the emailed token must
	// stop being redeemable.
	if err := engine.VerifyCredential(ctx, "u1", "old-password"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := engine.CompleteReset(ctx, "u1", token, "new-password"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid after successful verify, got %v", err)
	}
}

func TestResetCooldownCapsRequests(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, mr, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	for i := 0; i < cfg.Reset.MaxPerCooldown; i++ {
		if _, err := engine.BeginReset(ctx, "u1"); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	if _, err := engine.BeginReset(ctx, "u1"); !errors.Is(err, ErrResetCooldown) {
		t.Fatalf("expected ErrResetCooldown, got %v", err)
	}

	mr.FastForward(cfg.Reset.Cooldown)

	if _, err := engine.BeginReset(ctx, "u1"); err != nil {
		t.Fatalf("request after cooldown failed: %v", err)
	}
}

func TestResetUnknownSubject(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	if _, err := engine.BeginReset(context.Background(), "ghost"); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestResetAttemptsExceededDestroysRecord(t *testing.T) {
	cfg := engineTestConfig(t)
	cfg.Reset.MaxAttempts = 2
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "old-password")
	ctx := context.Background()

	token, err := engine.BeginReset(ctx, "u1")
	if err != nil {
		t.Fatalf("begin reset failed: %v", err)
	}

	for i := 0; i < cfg.Reset.MaxAttempts; i++ {
		if err := engine.CompleteReset(ctx, "u1", "wrong-token", "pw"); !errors.Is(err, ErrResetInvalid) {
			t.Fatalf("attempt %d: expected ErrResetInvalid, got %v", i+1, err)
		}
	}

	// The record is gone; even the real token no longer redeems.
	if err := engine.CompleteReset(ctx, "u1", token, "pw"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid after destruction, got %v", err)
	}
}
