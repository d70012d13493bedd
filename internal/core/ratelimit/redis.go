package ratelimit

import (
	"context"
	"time"

	"menu-gen-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisLimiter 多個實例共用的限流器
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisLimiter 創建 Redis 限流器
func NewRedisLimiter(client *redis.Client, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "menugen:ratelimit"
	}
	return &RedisLimiter{client: client, window: window, prefix: prefix}
}

// Allow 以 SET NX 記錄時間窗，Redis 失敗時放行
func (l *RedisLimiter) Allow(ctx context.Context, callerID string) (Decision, error) {
	key := l.prefix + ":" + callerID

	ok, err := l.client.SetNX(ctx, key, time.Now().UnixMilli(), l.window).Result()
	if err != nil {
		common.LogWarn("Redis 限流失敗，放行請求", zap.String("caller", callerID), zap.Error(err))
		return Decision{Allowed: true}, nil
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
