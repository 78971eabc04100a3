package stores

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestResetStore(t *testing.T) (*ResetStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewResetStore(rdb, ""), mr
}

func resetRecord(subjectID, token string, ttl time.Duration) *ResetRecord {
	return &ResetRecord{
		SubjectID: subjectID,
		TokenHash: sha256.Sum256([]byte(token)),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
}

func TestConsumeMatchingTokenClearsRecord(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-1", time.Hour), time.Hour))

	rec, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 5)
	require.NoError(t, err)
	require.Equal(t, "alice", rec.SubjectID)

	// Single use: a second consume finds nothing.
	_, err = store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 5)
	require.ErrorIs(t, err, ErrResetNotFound)
}

func TestConsumeWrongTokenBurnsAttempt(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-1", time.Hour), time.Hour))

	_, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("wrong")), 3)
	require.ErrorIs(t, err, ErrResetMismatch)

	// The right token still works after a miss.
	rec, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 3)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Attempts)
}

func TestConsumeAttemptsExceededDestroysRecord(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-1", time.Hour), time.Hour))

	wrong := sha256.Sum256([]byte("wrong"))
	_, err := store.Consume(ctx, "alice", wrong, 2)
	require.ErrorIs(t, err, ErrResetMismatch)
	_, err = store.Consume(ctx, "alice", wrong, 2)
	require.ErrorIs(t, err, ErrResetAttemptsExceeded)

	_, err = store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 2)
	require.ErrorIs(t, err, ErrResetNotFound)
}

func TestSecondSaveSupersedesFirst(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-1", time.Hour), time.Hour))
	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-2", time.Hour), time.Hour))

	_, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 5)
	require.ErrorIs(t, err, ErrResetMismatch)

	rec, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-2")), 5)
	require.NoError(t, err)
	require.Equal(t, "alice", rec.SubjectID)
}

func TestRecordExpires(t *testing.T) {
	store, mr := newTestResetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, resetRecord("alice", "tok-1", time.Minute), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "alice", sha256.Sum256([]byte("tok-1")), 5)
	require.ErrorIs(t, err, ErrResetNotFound)
}

func TestCountRequestWindow(t *testing.T) {
	store, mr := newTestResetStore(t)
	ctx := context.Background()

	n, err := store.CountRequest(ctx, "alice", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = store.CountRequest(ctx, "alice", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	mr.FastForward(2 * time.Minute)
	n, err = store.CountRequest(ctx, "alice", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
