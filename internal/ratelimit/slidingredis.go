package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Limiter counts events per key in a sliding window, backed by a Redis sorted
// set with one member per event scored by arrival time.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Allow records one event under key and reports whether the window still has
// room. A nil client or non-positive threshold disables limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}

	now := time.Now()
	resetAt := now.Add(window)
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	member := key + ":" + uuid.NewString()

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, l.Prefix+key, "-inf", cutoff)
	pipe.ZAdd(ctx, l.Prefix+key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, l.Prefix+key)
	pipe.Expire(ctx, l.Prefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, err
	}

	seen := int(count.Val())
	remaining := max - seen
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: seen <= max, Remaining: remaining, ResetAt: resetAt}, nil
}
