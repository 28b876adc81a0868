package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "throttle:"

// Limiter 基于 Redis 的固定窗口计数
type Limiter struct {
	rdb    *redis.Client
	window time.Duration
}

// Result 单次检查结果
type Result struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

func New(rdb *redis.Client, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Hour
	}
	return &Limiter{rdb: rdb, window: window}
}

// Allow 记录一次请求并判断 scope+ident 是否超过 limit；limit <= 0 表示不限制
func (l *Limiter) Allow(ctx context.Context, scope, ident string, limit int) (*Result, error) {
	if limit <= 0 {
		return &Result{Allowed: true}, nil
	}

	key := fmt.Sprintf("%s%s:%s", keyPrefix, scope, ident)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	// 窗口内第一次请求时设置过期时间
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return nil, err
		}
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		// 过期时间丢失时补上，避免计数永不重置
		_ = l.rdb.Expire(ctx, key, l.window).Err()
		ttl = l.window
	}

	return &Result{
		Allowed:    count <= int64(limit),
		Count:      count,
		Limit:      limit,
		RetryAfter: ttl,
	}, nil
}

// Reset 清除计数
func (l *Limiter) Reset(ctx context.Context, scope, ident string) error {
	return l.rdb.Del(ctx, fmt.Sprintf("%s%s:%s", keyPrefix, scope, ident)).Err()
}
