package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/openbid/auction-marketplace/internal/adapters/redis"
	"github.com/openbid/auction-marketplace/internal/observability"
)

// RateLimiter is a fixed-window counter over redis. Bidding bursts are
// expected around auction close, so limits are per user and per IP
// rather than global.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false
	}

	if incr.Val() > int64(rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
