// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
	"github.com/Airbotix-AI/airbotix-sub000/internal/ratelimit"
)

func newRedisLimiterStore(t *testing.T) (*ratelimit.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.NewRedisStore(client), server
}

/*
TestRedisStore_Increment verifies the INCR-based counter and its TTL.
*/
func TestRedisStore_Increment(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisLimiterStore(t)

	first, err := store.Increment(ctx, "key", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Count)
	assert.False(t, first.ResetTime.IsZero())

	second, err := store.Increment(ctx, "key", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Count)
}

/*
TestRedisStore_WindowExpiry fast-forwards past the window TTL and expects a
fresh count.
*/
func TestRedisStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisLimiterStore(t)

	_, err := store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)

	state, err := store.Increment(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Count)
}

/*
TestRedisStore_LimiterIntegration runs the limiter end to end on Redis.
*/
func TestRedisStore_LimiterIntegration(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisLimiterStore(t)
	limiter := ratelimit.NewLimiter(store, 2, time.Minute)

	_, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)

	_, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RATE_LIMIT_EXCEEDED"))

	server.FastForward(2 * time.Minute)

	_, err = limiter.Allow(ctx, "ip:10.0.0.1")
	assert.NoError(t, err)
}

/*
TestRedisStore_Reset clears the key immediately.
*/
func TestRedisStore_Reset(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisLimiterStore(t)

	_, err := store.Increment(ctx, "key", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, "key"))

	state, err := store.Increment(ctx, "key", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Count)
}
