package authcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// mockSubjectProvider is an in-memory subject store that counts reads, so
// tests can prove a code path never reached the credential lookup.
type mockSubjectProvider struct {
	mu          sync.Mutex
	hashes      map[string]string
	otpSecrets  map[string]string
	lookupCalls int
}

func newMockProvider() *mockSubjectProvider {
	return &mockSubjectProvider{
		hashes:     map[string]string{},
		otpSecrets: map[string]string{},
	}
}

func (p *mockSubjectProvider) GetCredentialHash(_ context.Context, subjectID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookupCalls++
	hash, ok := p.hashes[subjectID]
	if !ok {
		return "", ErrSubjectNotFound
	}
	return hash, nil
}

func (p *mockSubjectProvider) UpdateCredentialHash(_ context.Context, subjectID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hashes[subjectID] = newHash
	return nil
}

func (p *mockSubjectProvider) GetOTPSecret(_ context.Context, subjectID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.hashes[subjectID]; !ok {
		return "", ErrSubjectNotFound
	}
	return p.otpSecrets[subjectID], nil
}

func (p *mockSubjectProvider) SetOTPSecret(_ context.Context, subjectID, secret string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.otpSecrets[subjectID] = secret
	return nil
}

func (p *mockSubjectProvider) lookups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookupCalls
}

// capturingSink records delivered notifications for assertion.
type capturingSink struct {
	mu    sync.Mutex
	notes []Notification
}

func (s *capturingSink) Deliver(_ context.Context, n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *capturingSink) delivered() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notes))
	copy(out, s.notes)
	return out
}

func engineTestConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519 keygen: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Token.Issuer = "authcore-test"
	cfg.Token.Audience = "api"
	cfg.Token.SessionSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.StepUpPrivateKey = priv
	cfg.Token.StepUpPublicKey = pub
	// Keep hashing cheap so the suite stays fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, provider SubjectProvider, sink NotificationSink) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSubjectProvider(provider)
	if sink != nil {
		builder = builder.WithNotificationSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		mr.Close()
	}
}

// seedSubject installs a subject with the given password and returns its hash.
func seedSubject(t *testing.T, e *Engine, p *mockSubjectProvider, subjectID, pwd string) {
	t.Helper()

	hash, err := e.HashCredential(pwd)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	p.mu.Lock()
	p.hashes[subjectID] = hash
	p.mu.Unlock()
}
