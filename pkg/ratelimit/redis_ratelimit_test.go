package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisRateLimiter 테스트용 Redis Rate Limiter (localhost:6379 필요, 없으면 skip)
func setupRedisRateLimiter(t *testing.T) *RedisRateLimiter {
	limiter, err := NewRedisRateLimiter(RedisRateLimiterConfig{
		Addr:         "localhost:6379",
		DB:           15, // 테스트용 DB
		KeyPrefix:    "test:ratelimit:",
		DefaultLimit: 5,
		DefaultTTL:   time.Minute,
	})
	require.NoError(t, err)

	if err := limiter.Ping(context.Background()); err != nil {
		limiter.Close()
		t.Skipf("Redis server not available: %v", err)
	}

	t.Cleanup(func() { limiter.Close() })
	return limiter
}

func TestRedisRateLimiter_LimitAndReset(t *testing.T) {
	limiter := setupRedisRateLimiter(t)
	ctx := context.Background()
	key := "user:ws-connect"
	require.NoError(t, limiter.Reset(ctx, key))
	defer limiter.Reset(ctx, key)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "Request %d should be allowed", i+1)
	}

	allowed, info, err := limiter.AllowWithInfo(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	allowed, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := setupRedisRateLimiter(t)
	ctx := context.Background()
	defer limiter.Reset(ctx, "user:a")
	defer limiter.Reset(ctx, "user:b")

	limiter.Allow(ctx, "user:a", 1, time.Minute)
	allowedA, _ := limiter.Allow(ctx, "user:a", 1, time.Minute)
	allowedB, _ := limiter.Allow(ctx, "user:b", 1, time.Minute)

	assert.False(t, allowedA)
	assert.True(t, allowedB)
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter(RedisRateLimiterConfig{URL: "://not-a-url"})
	assert.Error(t, err)
}

func TestRedisRateLimiter_Unreachable(t *testing.T) {
	limiter, err := NewRedisRateLimiter(RedisRateLimiterConfig{Addr: "invalid:9999"})
	require.NoError(t, err)
	defer limiter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, limiter.Ping(ctx))
}
