// Package session is the revocation ledger for authcore. A token's
// cryptographic validity is necessary but not sufficient: absence of its jti
// here means the session is revoked regardless of signature correctness.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when the session identifier is absent from
	// the ledger (expired, revoked, or never created).
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable indicates the ledger backend is unreachable.
	ErrUnavailable = errors.New("session store unavailable")
)

// Record is one login episode. At most one live record exists per subject;
// a new login supersedes the prior one.
type Record struct {
	SessionID  string `json:"session_id"`
	SubjectID  string `json:"subject_id"`
	Device     string `json:"device,omitempty"`
	IP         string `json:"ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	LastActive int64  `json:"last_active"`
	SignedIn   int64  `json:"signed_in"`
}

// putScript atomically replaces the subject's current session: the previous
// session key is deleted in the same call that installs the new one, so
// concurrent logins for one subject converge on a single surviving record.
const putScript = `
local prev = redis.call("GET", KEYS[2])
if prev and prev ~= ARGV[1] then
  redis.call("DEL", ARGV[3] .. prev)
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[4])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[4])
return 1
`

var putLua = redis.NewScript(putScript)

// deleteScript removes the session key and clears the subject pointer only
// when it still points at this session, so revoking a superseded session
// never disturbs the subject's current one.
const deleteScript = `
local existed = redis.call("DEL", KEYS[1])
if redis.call("GET", KEYS[2]) == ARGV[1] then
  redis.call("DEL", KEYS[2])
end
return existed
`

var deleteLua = redis.NewScript(deleteScript)

const deleteAllScript = `
local sid = redis.call("GET", KEYS[1])
if not sid then
  return 0
end
redis.call("DEL", ARGV[1] .. sid)
redis.call("DEL", KEYS[1])
return 1
`

var deleteAllLua = redis.NewScript(deleteAllScript)

// touchScript rewrites the last-active stamp in place. GET and SET run in
// one script so a record that expires mid-update is never recreated without
// its TTL.
const touchScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local rec = cjson.decode(data)
rec["last_active"] = tonumber(ARGV[1])
redis.call("SET", KEYS[1], cjson.encode(rec), "KEEPTTL")
return 1
`

var touchLua = redis.NewScript(touchScript)

// Store is the Redis-backed ledger. All methods are acknowledged by Redis
// before returning, so a revoke observed by the caller is observed by every
// worker.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a ledger using prefix as the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ac"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) sessionPrefix() string {
	return s.prefix + ":s:"
}

func (s *Store) sessionKey(sessionID string) string {
	return s.sessionPrefix() + sessionID
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + ":u:" + subjectID
}

// Put upserts the record with the given TTL, superseding any prior session
// of the same subject. Idempotent for repeated calls with the same session.
func (s *Store) Put(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.SessionID == "" || rec.SubjectID == "" {
		return errors.New("session record requires session and subject identifiers")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	keys := []string{s.sessionKey(rec.SessionID), s.subjectKey(rec.SubjectID)}
	argv := []interface{}{rec.SessionID, encoded, s.sessionPrefix(), ttl.Milliseconds()}
	if err := putLua.Run(ctx, s.redis, keys, argv...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get resolves a session identifier to its record, or ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt session record: %v", ErrUnavailable, err)
	}
	return &rec, nil
}

// CurrentForSubject returns the subject's live session identifier, or
// ErrNotFound when none exists.
func (s *Store) CurrentForSubject(ctx context.Context, subjectID string) (string, error) {
	sid, err := s.redis.Get(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return sid, nil
}

// Delete revokes a single session. Deleting an absent session is not an
// error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	keys := []string{s.sessionKey(sessionID), s.subjectKey(rec.SubjectID)}
	if err := deleteLua.Run(ctx, s.redis, keys, sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForSubject revokes the subject's live session (logout everywhere,
// password change, ban).
func (s *Store) DeleteAllForSubject(ctx context.Context, subjectID string) error {
	keys := []string{s.subjectKey(subjectID)}
	if err := deleteAllLua.Run(ctx, s.redis, keys, s.sessionPrefix()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Touch refreshes the record's last-active stamp without extending its TTL.
// An absent (expired or revoked) session returns ErrNotFound and is never
// recreated.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	keys := []string{s.sessionKey(sessionID)}
	updated, err := touchLua.Run(ctx, s.redis, keys, at.Unix()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}
