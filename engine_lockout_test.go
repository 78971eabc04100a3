package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLockoutThresholdTriggersLock(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "correct-horse")
	ctx := context.Background()

	for i := 0; i < cfg.Governor.LockoutThreshold; i++ {
		err := engine.VerifyCredential(ctx, "u1", "wrong-horse")
		if !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("attempt %d: expected ErrInvalidCredential, got %v", i+1, err)
		}
	}

	if err := engine.VerifyCredential(ctx, "u1", "wrong-horse"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
}

func TestLockoutBlocksCorrectCredential(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "correct-horse")
	ctx := context.Background()

	for i := 0; i < cfg.Governor.LockoutThreshold; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong-horse")
	}
	before := provider.lookups()

	// The comparison must never run for a locked subject, even with the
	// right password.
	if err := engine.VerifyCredential(ctx, "u1", "correct-horse"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
	if got := provider.lookups(); got != before {
		t.Fatalf("credential lookup ran while locked: %d calls, want %d", got, before)
	}
}

func TestLockoutNotifiesExactlyOncePerEpisode(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	sink := &capturingSink{}
	engine, _, done := newTestEngine(t, cfg, provider, sink)

	seedSubject(t, engine, provider, "u1", "correct-horse")
	ctx := context.Background()

	// Well past the threshold: the extra attempts fail at the governor and
	// must not re-notify.
	for i := 0; i < cfg.Governor.LockoutThreshold+3; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong-horse")
	}

	done() // drains the dispatcher

	var lockouts int
	for _, n := range sink.delivered() {
		if n.Kind == NotifyLockout && n.SubjectID == "u1" {
			lockouts++
		}
	}
	if lockouts != 1 {
		t.Fatalf("expected exactly 1 lockout notification, got %d", lockouts)
	}
}

func TestLockoutWindowExpiryRestoresAccess(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, mr, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "correct-horse")
	ctx := context.Background()

	for i := 0; i < cfg.Governor.LockoutThreshold; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong-horse")
	}
	if err := engine.VerifyCredential(ctx, "u1", "correct-horse"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}

	mr.FastForward(cfg.Governor.LockoutWindow)

	if err := engine.VerifyCredential(ctx, "u1", "correct-horse"); err != nil {
		t.Fatalf("verify after window expiry failed: %v", err)
	}
}

func TestLockoutSuccessResetsCounter(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "correct-horse")
	ctx := context.Background()

	// Two strikes, then a success, then two more strikes: never locked.
	for i := 0; i < 2; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong-horse")
	}
	if err := engine.VerifyCredential(ctx, "u1", "correct-horse"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := engine.VerifyCredential(ctx, "u1", "wrong-horse"); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("expected ErrInvalidCredential, got %v", err)
		}
	}
}

func TestUnknownSubjectDoesNotCountStrike(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	for i := 0; i < cfg.Governor.LockoutThreshold+1; i++ {
		if err := engine.VerifyCredential(ctx, "ghost", "anything"); !errors.Is(err, ErrSubjectNotFound) {
			t.Fatalf("attempt %d: expected ErrSubjectNotFound, got %v", i+1, err)
		}
	}
}

func TestLockoutIsolatedPerSubject(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	seedSubject(t, engine, provider, "u1", "pw-one")
	seedSubject(t, engine, provider, "u2", "pw-two")
	ctx := context.Background()

	for i := 0; i < cfg.Governor.LockoutThreshold; i++ {
		engine.VerifyCredential(ctx, "u1", "wrong")
	}

	if err := engine.VerifyCredential(ctx, "u2", "pw-two"); err != nil {
		t.Fatalf("u2 verify failed: %v", err)
	}
}
