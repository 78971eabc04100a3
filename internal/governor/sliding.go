package governor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow is the rate limiter: a Redis sorted set of request
// timestamps per (caller key, route class). Requests over the threshold are
// delayed proportionally to the overage rather than hard-rejected, up to
// the policy's cap.
type SlidingWindow struct {
	redis  redis.UniversalClient
	prefix string
}

// NewSlidingWindow creates a sliding-window limiter under the given key
// namespace.
func NewSlidingWindow(redisClient redis.UniversalClient, prefix string) *SlidingWindow {
	if prefix == "" {
		prefix = "ac:rl"
	}
	return &SlidingWindow{redis: redisClient, prefix: prefix}
}

func (w *SlidingWindow) key(callerKey, class string) string {
	return w.prefix + ":" + class + ":" + callerKey
}

// Reserve records one request and returns the delay the caller must serve
// before proceeding. Zero when under the threshold; ErrRateLimited when the
// proportional delay would exceed the policy cap.
func (w *SlidingWindow) Reserve(ctx context.Context, callerKey string, pol Policy) (time.Duration, error) {
	if pol.Exempt || pol.Threshold <= 0 {
		return 0, nil
	}

	key := w.key(callerKey, pol.Class)
	now := time.Now()
	cutoff := now.Add(-pol.Window).UnixNano()

	pipe := w.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, pol.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	count, err := card.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	overage := count - int64(pol.Threshold)
	if overage <= 0 {
		return 0, nil
	}

	delay := time.Duration(overage) * pol.Penalty
	if pol.MaxDelay > 0 && delay > pol.MaxDelay {
		return 0, ErrRateLimited
	}
	return delay, nil
}

// Count returns the number of requests currently inside the window for the
// caller key, without recording one.
func (w *SlidingWindow) Count(ctx context.Context, callerKey string, pol Policy) (int64, error) {
	key := w.key(callerKey, pol.Class)
	cutoff := time.Now().Add(-pol.Window).UnixNano()

	if err := w.redis.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	count, err := w.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}
