package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestEstablishVerifyRoundTrip(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	login, err := engine.EstablishSession(ctx, "u1", RequestMeta{Device: "cli", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("establish failed: %v", err)
	}
	if login.SessionID == "" || login.Token == "" {
		t.Fatal("expected session id and token")
	}

	claims, err := engine.VerifyToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.SubjectID() != "u1" {
		t.Fatalf("subject = %q, want u1", claims.SubjectID())
	}
	if claims.TokenID() != login.SessionID {
		t.Fatalf("jti = %q, want %q", claims.TokenID(), login.SessionID)
	}

	info, err := engine.GetSession(ctx, login.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if info.Device != "cli" || info.IP != "10.0.0.1" {
		t.Fatalf("session meta not stamped: %+v", info)
	}
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	first, err := engine.EstablishSession(ctx, "alice", RequestMeta{Device: "laptop"})
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := engine.EstablishSession(ctx, "alice", RequestMeta{Device: "phone"})
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	// The first token still verifies cryptographically but its session is
	// gone from the ledger.
	if _, err := engine.VerifyToken(ctx, first.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for superseded token, got %v", err)
	}
	if _, err := engine.VerifyToken(ctx, second.Token); err != nil {
		t.Fatalf("second token must verify: %v", err)
	}
}

func TestRevokeSessionKillsToken(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	login, err := engine.EstablishSession(ctx, "u1", RequestMeta{})
	if err != nil {
		t.Fatalf("establish failed: %v", err)
	}
	if err := engine.RevokeSession(ctx, login.SessionID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	if _, err := engine.VerifyToken(ctx, login.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := engine.GetSession(ctx, login.SessionID); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked from GetSession, got %v", err)
	}

	// Revoking again is a no-op.
	if err := engine.RevokeSession(ctx, login.SessionID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := engine.VerifyToken(ctx, tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestSessionExpiresWithTokenTTL(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, mr, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	ctx := context.Background()
	login, err := engine.EstablishSession(ctx, "u1", RequestMeta{})
	if err != nil {
		t.Fatalf("establish failed: %v", err)
	}

	mr.FastForward(cfg.Token.SessionTTL)

	if _, err := engine.GetSession(ctx, login.SessionID); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after ledger expiry, got %v", err)
	}
}

func TestStepUpTokenIssueAndVerify(t *testing.T) {
	cfg := engineTestConfig(t)
	provider := newMockProvider()
	engine, _, done := newTestEngine(t, cfg, provider, nil)
	defer done()

	tokenID, raw, err := engine.IssueStepUpToken("u1", "")
	if err != nil {
		t.Fatalf("issue step-up failed: %v", err)
	}
	if tokenID == "" {
		t.Fatal("expected generated token id")
	}

	claims, err := engine.VerifyStepUpToken(raw)
	if err != nil {
		t.Fatalf("verify step-up failed: %v", err)
	}
	if claims.SubjectID() != "u1" || claims.TokenID() != tokenID {
		t.Fatalf("claims mismatch: sub=%q jti=%q", claims.SubjectID(), claims.TokenID())
	}

	// A session token must not pass step-up verification; the algorithms
	// are not interchangeable.
	login, err := engine.EstablishSession(context.Background(), "u1", RequestMeta{})
	if err != nil {
		t.Fatalf("establish failed: %v", err)
	}
	if _, err := engine.VerifyStepUpToken(login.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for session token, got %v", err)
	}
}
