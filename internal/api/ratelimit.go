package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type rateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// overRateLimit 对固定窗口键做 INCR 计数并报告是否超限。
// 窗口由调用方编码进键里；Redis 故障时放行，限流不挡正常登录。
func overRateLimit(ctx context.Context, client rateCounter, key string, limit int, window time.Duration) bool {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return false
	}
	if count == 1 {
		_ = client.Expire(ctx, key, window).Err()
	}
	return count > int64(limit)
}
