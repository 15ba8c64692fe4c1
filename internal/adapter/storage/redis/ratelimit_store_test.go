package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRateLimitStore(client)
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := store.Allow(ctx, "signer1:write", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be allowed", i)
			assert.Equal(t, int64(3), result.Limit)
			assert.Equal(t, 3-i, result.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		result, err := store.Allow(ctx, "signer1:write", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, int64(0), result.Remaining)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		result, err := store.Allow(ctx, "signer2:write", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(4), result.Remaining)
	})

	t.Run("ResetAt is the end of the window", func(t *testing.T) {
		result, err := store.Allow(ctx, "signer3:read", 10, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC), result.ResetAt.UTC())
	})

	t.Run("next window starts from zero", func(t *testing.T) {
		key := "signer4:write"
		_, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)

		now = now.Add(time.Minute)
		result, err = store.Allow(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("counters expire", func(t *testing.T) {
		_, err := store.Allow(ctx, "signer5:write", 1, time.Minute)
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)
		assert.Empty(t, mr.Keys())
	})
}

func TestRateLimitStore_RejectsBadWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err := NewRateLimitStore(client).Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestRateLimitStore_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRateLimitStore(client).Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}
