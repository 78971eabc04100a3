package authcore

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Configure once, pass to
// [Builder.WithConfig], and treat as immutable afterwards.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	OTP      OTPConfig
	Governor GovernorConfig
	Password PasswordConfig
	Reset    ResetConfig
	Notify   NotifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig carries the signing material and claim constants.
type TokenConfig struct {
	Issuer   string
	Audience string

	// SessionSecret is the shared HMAC key for session tokens (>= 32 bytes).
	SessionSecret []byte
	// SessionTTL is the default session token (and ledger record) lifetime.
	SessionTTL time.Duration

	// StepUpPrivateKey / StepUpPublicKey are the Ed25519 pair for step-up
	// tokens, raw or PEM. Verify-only deployments set just the public key.
	StepUpPrivateKey []byte
	StepUpPublicKey  []byte
	StepUpTTL        time.Duration

	// Leeway tolerates clock skew during verification.
	Leeway time.Duration
}

// SessionConfig namespaces the revocation ledger.
type SessionConfig struct {
	RedisPrefix string
}

// OTPConfig tunes the one-time-code engine. The hash (SHA1) and digit count
// (6) are fixed; enrolled authenticators bake them in.
type OTPConfig struct {
	Issuer      string
	Period      uint
	Skew        uint
	RedisPrefix string
}

// GovernorConfig tunes lockout and rate limiting.
type GovernorConfig struct {
	LockoutThreshold int
	LockoutWindow    time.Duration

	// DefaultRoute applies to any route class without an explicit policy.
	DefaultRoute RoutePolicy
	Routes       []RoutePolicy

	RedisPrefix string
}

// RoutePolicy is the throttle behavior for one route class.
type RoutePolicy struct {
	Class     string
	Threshold int
	Window    time.Duration
	// Penalty is added to the response delay per request over the
	// threshold; MaxDelay caps it, beyond which the request is rejected.
	Penalty  time.Duration
	MaxDelay time.Duration
	Exempt   bool
}

// PasswordConfig tunes the Argon2id cost factors.
type PasswordConfig struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// ResetConfig tunes single-use reset tokens.
type ResetConfig struct {
	// TTL bounds how long an issued token stays redeemable.
	TTL time.Duration
	// Cooldown is the window within which at most MaxPerCooldown reset
	// requests are admitted per subject; the second request supersedes the
	// first's token.
	Cooldown       time.Duration
	MaxPerCooldown int
	// MaxAttempts bounds wrong-token presentations before the record is
	// destroyed.
	MaxAttempts int
	RedisPrefix string
}

// NotifyConfig tunes the security-notification dispatcher.
type NotifyConfig struct {
	BufferSize int
	DropIfFull bool
}

// AuditConfig tunes the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the hardened defaults: 1 h sessions, 15 min step-up
// tokens, 30 s / 6-digit OTP with one step of skew, 3-strike lockout over
// 24 h, and moderate Argon2id costs.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SessionTTL: time.Hour,
			StepUpTTL:  15 * time.Minute,
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "ac",
		},
		OTP: OTPConfig{
			Period:      30,
			Skew:        1,
			RedisPrefix: "ac:otp",
		},
		Governor: GovernorConfig{
			LockoutThreshold: 3,
			LockoutWindow:    24 * time.Hour,
			DefaultRoute: RoutePolicy{
				Threshold: 60,
				Window:    time.Minute,
				Penalty:   50 * time.Millisecond,
				MaxDelay:  2 * time.Second,
			},
			Routes: []RoutePolicy{
				{
					Class:     "credential",
					Threshold: 10,
					Window:    time.Minute,
					Penalty:   200 * time.Millisecond,
					MaxDelay:  3 * time.Second,
				},
			},
			RedisPrefix: "ac:gov",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Reset: ResetConfig{
			TTL:            15 * time.Minute,
			Cooldown:       10 * time.Minute,
			MaxPerCooldown: 2,
			MaxAttempts:    5,
			RedisPrefix:    "ac:reset",
		},
		Notify: NotifyConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func (c *Config) validate() error {
	if c.Token.Issuer == "" || c.Token.Audience == "" {
		return errors.New("token issuer and audience are required")
	}
	if len(c.Token.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.Token.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.OTP.Issuer == "" {
		c.OTP.Issuer = c.Token.Issuer
	}
	if c.Governor.LockoutThreshold <= 0 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Governor.LockoutWindow <= 0 {
		return errors.New("lockout window must be positive")
	}
	if c.Reset.TTL <= 0 || c.Reset.Cooldown <= 0 {
		return errors.New("reset TTL and cooldown must be positive")
	}
	if c.Reset.MaxPerCooldown <= 0 {
		c.Reset.MaxPerCooldown = 2
	}
	if c.Reset.MaxAttempts <= 0 {
		c.Reset.MaxAttempts = 5
	}
	return nil
}
