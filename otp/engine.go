// Package otp generates and validates time-based one-time codes and keeps
// the replay blacklist that makes a validated code single-use within its
// time-step.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrReplayed is returned when a code that already passed validation is
	// presented again within its time-step.
	ErrReplayed = errors.New("one-time code replayed")
	// ErrUnavailable indicates the blacklist backend is unreachable.
	ErrUnavailable = errors.New("otp blacklist unavailable")
)

const (
	defaultPeriod     = 30
	defaultSkew       = 1
	defaultSecretSize = 20
)

// Config fixes the code parameters: SHA1, six digits, 30-second step.
// Period and Skew are configurable; the hash and digit count are not,
// because enrolled authenticator apps bake them in.
type Config struct {
	// Issuer labels the enrollment URI shown in authenticator apps.
	Issuer string
	// Period is the time-step length in seconds. Defaults to 30.
	Period uint
	// Skew is the number of adjacent steps accepted on either side of the
	// current one, tolerating clock drift. Defaults to 1.
	Skew uint
	// Prefix namespaces blacklist keys in Redis.
	Prefix string
}

// Provision is a freshly generated secret and its otpauth:// enrollment URI.
type Provision struct {
	Secret string
	URI    string
}

// Engine validates codes statelessly and consults Redis only for replay
// tracking. Safe for concurrent use.
type Engine struct {
	cfg   Config
	redis redis.UniversalClient
}

// NewEngine creates an OTP engine. Zero-value Period and Skew fall back to
// 30 s / 1 step.
func NewEngine(redisClient redis.UniversalClient, cfg Config) (*Engine, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("otp issuer must not be empty")
	}
	if cfg.Period == 0 {
		cfg.Period = defaultPeriod
	}
	if cfg.Skew == 0 {
		cfg.Skew = defaultSkew
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ac:otp"
	}
	return &Engine{cfg: cfg, redis: redisClient}, nil
}

// Provision generates a high-entropy secret for the subject together with
// its enrollment URI. Rotating a subject onto a new secret invalidates every
// code derived from the old one.
func (e *Engine) Provision(subjectID string) (*Provision, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.cfg.Issuer,
		AccountName: subjectID,
		Period:      e.cfg.Period,
		SecretSize:  defaultSecretSize,
		Digits:      potp.DigitsSix,
		Algorithm:   potp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	return &Provision{Secret: key.Secret(), URI: key.URL()}, nil
}

// Code returns the code for the current time-step.
func (e *Engine) Code(secret string) (string, error) {
	return e.CodeAt(secret, time.Now())
}

// CodeAt returns the deterministic code for the step containing t.
func (e *Engine) CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, e.validateOpts())
}

// Validate reports whether candidate matches the code for the current or an
// adjacent time-step. Comparison is constant time. A plain mismatch returns
// (false, nil); the error is reserved for malformed secrets.
func (e *Engine) Validate(candidate, secret string) (bool, error) {
	ok, err := totp.ValidateCustom(candidate, secret, time.Now(), e.validateOpts())
	if err != nil {
		if errors.Is(err, potp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Consume records a validated code in the blacklist for the remainder of its
// acceptance window. The second presentation of the same code within that
// window fails with ErrReplayed even though the code is still
// cryptographically correct.
func (e *Engine) Consume(ctx context.Context, subjectID, code string) error {
	period := int64(e.cfg.Period)
	now := time.Now().Unix()

	// Cover the rest of the current step plus the skew window during which
	// the same code would still validate.
	remaining := period - now%period + int64(e.cfg.Skew)*period
	ttl := time.Duration(remaining) * time.Second

	ok, err := e.redis.SetNX(ctx, e.blacklistKey(subjectID, code), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrReplayed
	}
	return nil
}

func (e *Engine) blacklistKey(subjectID, code string) string {
	return e.cfg.Prefix + ":bl:" + subjectID + ":" + code
}

func (e *Engine) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    e.cfg.Period,
		Skew:      e.cfg.Skew,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	}
}
