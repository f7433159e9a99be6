package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/openbid/auction-marketplace/internal/adapters/redis"
)

// Idempotency replays cached responses for duplicate POST requests so a
// retried bid or listing does not execute twice.
type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if i.redis == nil || key == "" {
		return nil, nil
	}
	cached, err := i.redis.Get(ctx, key)
	if err != nil || cached == nil {
		return nil, err
	}
	return &Response{Status: cached.Status, Result: cached.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if i.redis == nil || key == "" {
		return nil
	}
	return i.redis.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
