package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(rdb, time.Hour), mr
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, "contact", "1.2.3.4", 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, int64(i), res.Count)
	}

	res, err := limiter.Allow(ctx, "contact", "1.2.3.4", 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// 其他 IP 和其他 scope 独立计数
	res, err = limiter.Allow(ctx, "contact", "5.6.7.8", 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "newsletter", "1.2.3.4", 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_WindowExpires(t *testing.T) {
	limiter, mr := setupLimiter(t)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "comment", "ip", 1)
	require.NoError(t, err)
	res, err := limiter.Allow(ctx, "comment", "ip", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Hour + time.Second)

	res, err = limiter.Allow(ctx, "comment", "ip", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter, mr := setupLimiter(t)

	res, err := limiter.Allow(context.Background(), "contact", "ip", 0)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, mr.Exists("throttle:contact:ip"))
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "contact", "ip", 1)
	require.NoError(t, limiter.Reset(ctx, "contact", "ip"))

	res, err := limiter.Allow(ctx, "contact", "ip", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
