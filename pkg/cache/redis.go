package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter shared by every API instance.
// It satisfies middleware.Limiter.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, ErrUnavailable
	}
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// First hit opens the window.
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(max), nil
}

// Sequencer hands out monotonically increasing numbers from a Redis
// counter. Values already handed out are never reused, so a failed order
// leaves a gap.
type Sequencer struct {
	rdb *redis.Client
	key string
}

func NewSequencer(rdb *redis.Client, key string) *Sequencer {
	return &Sequencer{rdb: rdb, key: key}
}

// Next increments and returns the counter.
func (s *Sequencer) Next(ctx context.Context) (int64, error) {
	if s == nil || s.rdb == nil {
		return 0, ErrUnavailable
	}
	return s.rdb.Incr(ctx, s.key).Result()
}
