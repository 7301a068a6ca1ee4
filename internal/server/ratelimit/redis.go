package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in Redis. Callers add the scope,
// e.g. eduportal:rl:login:<ip>.
const KeyPrefix = "eduportal:rl:"

// RedisLimiter counts requests per key in fixed windows shared by every
// server instance.
type RedisLimiter struct {
	client   redis.Cmdable
	prefix   string
	requests int64
	window   time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, requests: int64(requests), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX keeps the window fixed and gives a key left without a TTL one
	// on the next hit. Needs Redis 7.0 or later.
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return incr.Val() <= l.requests, nil
}
