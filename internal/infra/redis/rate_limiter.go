package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed window counter per key.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// WebhookKey buckets webhook calls per remote address and minute.
func WebhookKey(remote string, now time.Time) string {
	return fmt.Sprintf("rate_limit:webhook:%s:%d", remote, now.Unix()/60)
}
