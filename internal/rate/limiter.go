package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable indicates the limiter backend is unreachable.
var ErrRedisUnavailable = errors.New("rate limiter redis unavailable")

// ttlSlack keeps attempt entries alive slightly past the window so a
// just-pruned read and a concurrent write cannot disagree about expiry.
const ttlSlack = time.Minute

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
}

// Limiter counts login attempts per identity (and optionally per IP) inside
// a trailing window.
type Limiter struct {
	rdb   redis.UniversalClient
	cfg   Config
	clock clockwork.Clock
}

// New creates a limiter backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{rdb: rdb, cfg: cfg, clock: clock}
}

func identityKey(identity string) string { return "rl:" + identity }
func ipKey(ip string) string             { return "rli:" + ip }

// Allowed prunes stale attempts and reports whether another attempt fits the
// budget for the identity (and the IP when throttling is enabled).
func (l *Limiter) Allowed(ctx context.Context, identity, ip string) (bool, error) {
	count, err := l.prunedCount(ctx, identityKey(identity))
	if err != nil {
		return false, err
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return false, nil
	}

	if l.cfg.EnableIPThrottle && ip != "" {
		count, err := l.prunedCount(ctx, ipKey(ip))
		if err != nil {
			return false, err
		}
		if count >= int64(l.cfg.MaxAttempts) {
			return false, nil
		}
	}
	return true, nil
}

// Record appends a timestamped attempt. Successful attempts are recorded too
// so the window reflects total login pressure, not only failures.
func (l *Limiter) Record(ctx context.Context, identity, ip string, _ bool) error {
	if err := l.append(ctx, identityKey(identity)); err != nil {
		return err
	}
	if l.cfg.EnableIPThrottle && ip != "" {
		return l.append(ctx, ipKey(ip))
	}
	return nil
}

// Remaining returns how many attempts the identity has left in the current
// window, never negative.
func (l *Limiter) Remaining(ctx context.Context, identity string) (int, error) {
	count, err := l.prunedCount(ctx, identityKey(identity))
	if err != nil {
		return 0, err
	}
	remaining := l.cfg.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *Limiter) append(ctx context.Context, key string) error {
	now := l.clock.Now()
	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, l.cfg.Window+ttlSlack)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) prunedCount(ctx context.Context, key string) (int64, error) {
	cutoff := l.clock.Now().Add(-l.cfg.Window).UnixNano()
	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return card.Val(), nil
}
