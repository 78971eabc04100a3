// Package governor holds the attempt-lockout counters and the
// sliding-window rate limiter. All state lives in Redis so every worker
// instance observes the same counts.
package governor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockedOut is returned once the failure threshold is reached.
	ErrLockedOut = errors.New("locked out")
	// ErrRateLimited is returned past the hard ceiling of a route class.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable indicates the governor backend is unreachable.
	ErrUnavailable = errors.New("governor backend unavailable")
)

// LockoutConfig sets the strike threshold and the counting window.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
	Prefix    string
}

// Lockout counts failed verifications per subject. At threshold, Check
// fails before the underlying verifier is ever invoked.
type Lockout struct {
	redis redis.UniversalClient
	cfg   LockoutConfig
}

// NewLockout creates a lockout counter. Zero-value fields fall back to
// 3 strikes / 24 h.
func NewLockout(redisClient redis.UniversalClient, cfg LockoutConfig) *Lockout {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ac:lock"
	}
	return &Lockout{redis: redisClient, cfg: cfg}
}

func (l *Lockout) key(subjectID string) string {
	return l.cfg.Prefix + ":" + subjectID
}

// Check returns ErrLockedOut when the subject has reached the threshold.
func (l *Lockout) Check(ctx context.Context, subjectID string) error {
	count, err := l.redis.Get(ctx, l.key(subjectID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.cfg.Threshold) {
		return ErrLockedOut
	}
	return nil
}

// RecordFailure increments the subject's strike counter. justLocked is true
// only for the increment that reaches the threshold, so exactly one
// notification fires per lockout episode.
func (l *Lockout) RecordFailure(ctx context.Context, subjectID string) (locked, justLocked bool, err error) {
	count, err := l.redis.Incr(ctx, l.key(subjectID)).Result()
	if err != nil {
		return false, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		// TTL on first strike: the counter window doubles as the lockout
		// duration and resets itself.
		if err := l.redis.Expire(ctx, l.key(subjectID), l.cfg.Window).Err(); err != nil {
			return false, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	threshold := int64(l.cfg.Threshold)
	return count >= threshold, count == threshold, nil
}

// Reset clears the subject's counter after a successful verification or a
// manual unlock.
func (l *Lockout) Reset(ctx context.Context, subjectID string) error {
	if err := l.redis.Del(ctx, l.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Failures returns the current strike count. Missing keys read as zero.
func (l *Lockout) Failures(ctx context.Context, subjectID string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(subjectID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}
