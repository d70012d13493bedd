package ratelimit

import (
	"context"
	"fmt"
	"time"

	"menu-gen-assistant/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Decision 限流判斷結果
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter 每個呼叫者在時間窗內只允許一次請求
type Limiter interface {
	Allow(ctx context.Context, callerID string) (Decision, error)
}

// New 依設定建立限流器，停用時回傳 nil
func New(cfg config.RateLimitConfig, client *redis.Client) (Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLimiter(cfg.Window, cfg.MaxCallers), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		return NewRedisLimiter(client, cfg.Window, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
