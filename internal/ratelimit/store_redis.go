// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/constants"
)

// RedisStore implements [Store] on Redis.
//
// # Atomicity
//
// INCR is the atomic increment-and-fetch the window invariant requires; the
// window itself is the key's TTL, so an expired record simply disappears and
// the next INCR starts a fresh window at 1.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: constants.RedisPrefixRateLimit,
	}
}

func (store *RedisStore) key(key string) string {
	return store.prefix + key
}

// Increment implements [Store].
func (store *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (State, error) {
	fullKey := store.key(key)

	count, err := store.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return State{}, fmt.Errorf("redis_ratelimit_incr_failed: %w", err)
	}

	// First event in the window: anchor the reset boundary via TTL.
	if count == 1 {
		if err := store.client.PExpire(ctx, fullKey, window).Err(); err != nil {
			return State{}, fmt.Errorf("redis_ratelimit_expire_failed: %w", err)
		}
		return State{Count: count, ResetTime: time.Now().Add(window)}, nil
	}

	timeToLive, err := store.client.PTTL(ctx, fullKey).Result()
	if err != nil {
		return State{}, fmt.Errorf("redis_ratelimit_pttl_failed: %w", err)
	}

	// A key can survive without TTL if the process died between INCR and
	// PEXPIRE. Repair it so the window cannot become permanent.
	if timeToLive < 0 {
		if err := store.client.PExpire(ctx, fullKey, window).Err(); err != nil {
			return State{}, fmt.Errorf("redis_ratelimit_expire_failed: %w", err)
		}
		timeToLive = window
	}

	return State{Count: count, ResetTime: time.Now().Add(timeToLive)}, nil
}

// Reset implements [Store].
func (store *RedisStore) Reset(ctx context.Context, key string) error {
	if err := store.client.Del(ctx, store.key(key)).Err(); err != nil {
		return fmt.Errorf("redis_ratelimit_reset_failed: %w", err)
	}
	return nil
}

// DeleteExpired implements [Store].
//
// Redis reclaims expired keys natively through TTL, so there is nothing to
// scan for. The sweep reports zero and stays a no-op here.
func (store *RedisStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
