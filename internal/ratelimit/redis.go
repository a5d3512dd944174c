package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared across bot replicas.
type RedisLimiter struct {
	client *redis.Client
	limits Limits
}

// NewRedisLimiter builds a limiter over an existing Redis client.
func NewRedisLimiter(client *redis.Client, limits Limits) *RedisLimiter {
	return &RedisLimiter{client: client, limits: limits}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	ok, err := l.allowWindow(ctx, userID, "minute", time.Minute, l.limits.PerMinute)
	if err != nil || !ok {
		return ok, err
	}
	return l.allowWindow(ctx, userID, "hour", time.Hour, l.limits.PerHour)
}

func (l *RedisLimiter) allowWindow(ctx context.Context, userID, scope string, span time.Duration, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", scope, userID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, span).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	return count <= int64(limit), nil
}
