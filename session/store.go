package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session row exists under a jti.
var ErrNotFound = errors.New("session not found")

const spendSessionScript = `
local removed = redis.call("DEL", KEYS[1])
if removed == 1 then
  redis.call("ZREM", KEYS[2], ARGV[1])
  redis.call("ZREM", KEYS[3], ARGV[1])
end
return removed
`

var spendSessionLua = redis.NewScript(spendSessionScript)

// ErrRedisUnavailable indicates the session backend is unreachable.
var ErrRedisUnavailable = errors.New("session redis unavailable")

// indexSlack keeps index entries alive slightly past the row TTL so a sweep
// can observe and clean them even when Redis already expired the row.
const indexSlack = time.Hour

// Store persists sessions in Redis. All operations are per-row and safe to
// run concurrently; RevokeAll is the one multi-row operation and executes as
// a single pipeline.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	clock  clockwork.Clock
}

// NewStore creates a session store. An empty prefix defaults to "as".
func NewStore(rdb redis.UniversalClient, prefix string, clock clockwork.Clock) *Store {
	if prefix == "" {
		prefix = "as"
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{rdb: rdb, prefix: prefix, clock: clock}
}

func (s *Store) sessKey(jti string) string    { return s.prefix + ":sess:" + jti }
func (s *Store) userKey(userID string) string { return s.prefix + ":usr:" + userID }
func (s *Store) expKey() string               { return s.prefix + ":exp" }

// Create inserts a row for the refresh token jti expiring after ttl.
func (s *Store) Create(ctx context.Context, userID, jti, deviceInfo, ip string, ttl time.Duration) (*Session, error) {
	now := s.clock.Now()
	sess := &Session{
		JTI:        jti,
		UserID:     userID,
		DeviceInfo: deviceInfo,
		IP:         ip,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessKey(jti), data, ttl+indexSlack)
	pipe.ZAdd(ctx, s.userKey(userID), redis.Z{Score: float64(sess.CreatedAt), Member: jti})
	pipe.Expire(ctx, s.userKey(userID), ttl+indexSlack)
	pipe.ZAdd(ctx, s.expKey(), redis.Z{Score: float64(sess.ExpiresAt), Member: jti})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return sess, nil
}

// GetByJTI returns the row stored under jti, or ErrNotFound. Expired rows are
// returned as-is; callers decide liveness via [Session.Active].
func (s *Store) GetByJTI(ctx context.Context, jti string) (*Session, error) {
	data, err := s.rdb.Get(ctx, s.sessKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session row %s: %w", jti, err)
	}
	return &sess, nil
}

// IsActive reports whether a non-expired row exists under jti.
func (s *Store) IsActive(ctx context.Context, jti string) (bool, error) {
	sess, err := s.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sess.Active(s.clock.Now()), nil
}

// Revoke deletes the row under jti together with its index entries.
// Revoking a jti that does not exist is a no-op, not an error.
func (s *Store) Revoke(ctx context.Context, jti string) error {
	sess, err := s.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Row already gone; still clear any dangling index entry.
			if err := s.rdb.ZRem(ctx, s.expKey(), jti).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			return nil
		}
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessKey(jti))
	pipe.ZRem(ctx, s.userKey(sess.UserID), jti)
	pipe.ZRem(ctx, s.expKey(), jti)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Spend deletes the row under jti together with its index entries and
// reports whether this call removed it. The delete runs as one Lua script,
// so when several callers race over the same jti exactly one observes true
// and the rest observe false.
func (s *Store) Spend(ctx context.Context, userID, jti string) (bool, error) {
	removed, err := spendSessionLua.Run(ctx, s.rdb,
		[]string{s.sessKey(jti), s.userKey(userID), s.expKey()}, jti).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed == 1, nil
}

// RevokeAll deletes every session of a user in one pipeline and returns how
// many rows were removed. Idempotent.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	jtis, err := s.rdb.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(jtis) == 0 {
		return 0, nil
	}

	sessKeys := make([]string, len(jtis))
	members := make([]interface{}, len(jtis))
	for i, jti := range jtis {
		sessKeys[i] = s.sessKey(jti)
		members[i] = jti
	}

	pipe := s.rdb.TxPipeline()
	delCmd := pipe.Del(ctx, sessKeys...)
	pipe.ZRem(ctx, s.expKey(), members...)
	pipe.Del(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// ListActive returns the user's non-expired sessions, newest first.
func (s *Store) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	jtis, err := s.rdb.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(jtis) == 0 {
		return nil, nil
	}

	keys := make([]string, len(jtis))
	for i, jti := range jtis {
		keys[i] = s.sessKey(jti)
	}
	rows, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := s.clock.Now()
	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		raw, ok := row.(string)
		if !ok {
			continue
		}
		var sess Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			continue
		}
		if sess.Active(now) {
			out = append(out, &sess)
		}
	}
	return out, nil
}

// SweepExpired deletes every row whose expiry has passed and returns the
// number of rows removed. Each row is handled independently, so the sweep is
// safe to run concurrently with normal traffic and with itself.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now().Unix()
	jtis, err := s.rdb.ZRangeByScore(ctx, s.expKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	swept := 0
	for _, jti := range jtis {
		sess, err := s.GetByJTI(ctx, jti)
		switch {
		case err == nil:
			pipe := s.rdb.TxPipeline()
			delCmd := pipe.Del(ctx, s.sessKey(jti))
			pipe.ZRem(ctx, s.userKey(sess.UserID), jti)
			pipe.ZRem(ctx, s.expKey(), jti)
			if _, err := pipe.Exec(ctx); err != nil {
				return swept, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			if delCmd.Val() > 0 {
				swept++
			}
		case errors.Is(err, ErrNotFound):
			// Redis TTL beat us to the row; drop the index entry.
			if err := s.rdb.ZRem(ctx, s.expKey(), jti).Err(); err != nil {
				return swept, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		default:
			return swept, err
		}
	}
	return swept, nil
}
