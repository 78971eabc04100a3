// Package stores holds the Redis records for single-use reset tokens.
package stores

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrResetNotFound is returned when no outstanding reset exists for the
	// subject (never issued, expired, consumed, or superseded).
	ErrResetNotFound = errors.New("reset record not found")
	// ErrResetMismatch is returned when the presented token does not match
	// the outstanding record.
	ErrResetMismatch = errors.New("reset token mismatch")
	// ErrResetAttemptsExceeded is returned once too many wrong tokens were
	// presented; the record is destroyed.
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	// ErrResetUnavailable indicates the backend is unreachable.
	ErrResetUnavailable = errors.New("reset store unavailable")
)

// ResetRecord is one outstanding reset grant. Only the token's SHA-256 is
// stored; the plaintext goes to the subject and is never persisted.
type ResetRecord struct {
	SubjectID string   `json:"subject_id"`
	TokenHash [32]byte `json:"token_hash"`
	ExpiresAt int64    `json:"expires_at"`
	Attempts  int      `json:"attempts"`
}

// ResetStore keys records by subject, so a new request naturally supersedes
// the prior token.
type ResetStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewResetStore creates a reset store under the given key namespace.
func NewResetStore(redisClient redis.UniversalClient, prefix string) *ResetStore {
	if prefix == "" {
		prefix = "ac:reset"
	}
	return &ResetStore{redis: redisClient, prefix: prefix}
}

func (s *ResetStore) key(subjectID string) string {
	return s.prefix + ":" + subjectID
}

func (s *ResetStore) cooldownKey(subjectID string) string {
	return s.prefix + ":cd:" + subjectID
}

// Save installs a record with the given TTL, overwriting any outstanding
// one for the subject.
func (s *ResetStore) Save(ctx context.Context, rec *ResetRecord, ttl time.Duration) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(rec.SubjectID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	return nil
}

// CountRequest increments the subject's request counter for the cooldown
// window and returns the new count. The caller decides how many requests a
// window admits.
func (s *ResetStore) CountRequest(ctx context.Context, subjectID string, cooldown time.Duration) (int64, error) {
	key := s.cooldownKey(subjectID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
		}
	}
	return count, nil
}

// Consume atomically validates and clears the outstanding record. The hash
// comparison is constant time; a mismatch burns one attempt and, past
// maxAttempts, destroys the record. Concurrent consumers race on the same
// record, but WATCH guarantees at most one wins.
func (s *ResetStore) Consume(ctx context.Context, subjectID string, providedHash [32]byte, maxAttempts int) (*ResetRecord, error) {
	const maxRetries = 4
	key := s.key(subjectID)

	for i := 0; i < maxRetries; i++ {
		var (
			matched *ResetRecord
			outcome error
		)

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var rec ResetRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}

			if time.Now().Unix() >= rec.ExpiresAt {
				outcome = ErrResetNotFound
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			if subtle.ConstantTimeCompare(rec.TokenHash[:], providedHash[:]) != 1 {
				rec.Attempts++
				if maxAttempts > 0 && rec.Attempts >= maxAttempts {
					outcome = ErrResetAttemptsExceeded
					_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					return err
				}

				outcome = ErrResetMismatch
				updated, err := json.Marshal(&rec)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, redis.KeepTTL)
					return nil
				})
				return err
			}

			matched = &rec
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrResetNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
		}
		if outcome != nil {
			return nil, outcome
		}
		return matched, nil
	}

	return nil, fmt.Errorf("%w: transaction retries exhausted", ErrResetUnavailable)
}

// Clear removes any outstanding record without consuming it.
func (s *ResetStore) Clear(ctx context.Context, subjectID string) error {
	if err := s.redis.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	return nil
}
