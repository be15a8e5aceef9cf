// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Airbotix-AI/airbotix-sub000/internal/auth"
)

func newRedisOtpStore(t *testing.T) (*auth.RedisOtpStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisOtpStore(client), server
}

func testOtpRecord(email string) *auth.OtpRecord {
	now := time.Now().Truncate(time.Millisecond)
	return &auth.OtpRecord{
		ID:        "otp-1",
		Email:     email,
		CodeHash:  "$2a$10$examplehash",
		ExpiresAt: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
}

/*
TestRedisOtpStore_ReplaceAndFind covers the full field round trip through the
Redis hash encoding.
*/
func TestRedisOtpStore_ReplaceAndFind(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)
	record := testOtpRecord("a@x.com")

	require.NoError(t, store.Replace(ctx, record))

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, record.Email, found.Email)
	assert.Equal(t, record.CodeHash, found.CodeHash)
	assert.Equal(t, 0, found.Attempts)
	assert.False(t, found.IsUsed)
	assert.True(t, record.ExpiresAt.Equal(found.ExpiresAt))
	assert.True(t, record.CreatedAt.Equal(found.CreatedAt))
}

/*
TestRedisOtpStore_FindMissing returns nil for an absent email.
*/
func TestRedisOtpStore_FindMissing(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)

	found, err := store.FindByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

/*
TestRedisOtpStore_Replace_DiscardsPrior verifies the one-live-record rule:
a replacement fully resets the attempt counter and used flag.
*/
func TestRedisOtpStore_Replace_DiscardsPrior(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)

	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))
	_, err := store.IncrementAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, store.MarkUsed(ctx, "a@x.com"))

	fresh := testOtpRecord("a@x.com")
	fresh.ID = "otp-2"
	require.NoError(t, store.Replace(ctx, fresh))

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "otp-2", found.ID)
	assert.Equal(t, 0, found.Attempts)
	assert.False(t, found.IsUsed)
}

/*
TestRedisOtpStore_IncrementAttempts checks the HINCRBY counter.
*/
func TestRedisOtpStore_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)
	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementAttempts(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

/*
TestRedisOtpStore_MarkUsed flips the consumed flag in place.
*/
func TestRedisOtpStore_MarkUsed(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)
	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))

	require.NoError(t, store.MarkUsed(ctx, "a@x.com"))

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.IsUsed)
}

/*
TestRedisOtpStore_NativeExpiry relies on the PEXPIREAT set by Replace: once
the server clock passes the expiry, the record is simply gone.
*/
func TestRedisOtpStore_NativeExpiry(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisOtpStore(t)
	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))

	server.FastForward(11 * time.Minute)

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

/*
TestRedisOtpStore_MutationAfterExpiry covers the race where the key's TTL
elapses between a lookup and the follow-up mutation. Neither IncrementAttempts
nor MarkUsed may resurrect the key as a partial, TTL-less hash; the email must
stay usable for a fresh code afterwards.
*/
func TestRedisOtpStore_MutationAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisOtpStore(t)
	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))

	server.FastForward(11 * time.Minute)

	attempts, err := store.IncrementAttempts(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, attempts)
	require.NoError(t, store.MarkUsed(ctx, "a@x.com"))

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.False(t, server.Exists("auth:otp:a@x.com"))

	// A new code for the same email must round-trip cleanly.
	fresh := testOtpRecord("a@x.com")
	fresh.ID = "otp-2"
	require.NoError(t, store.Replace(ctx, fresh))
	found, err = store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "otp-2", found.ID)
}

/*
TestRedisOtpStore_PartialHashTreatedAbsent makes FindByEmail self-heal a hash
that lost its required fields: it is deleted and reported as no record.
*/
func TestRedisOtpStore_PartialHashTreatedAbsent(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisOtpStore(t)
	server.HSet("auth:otp:a@x.com", "attempts", "1")

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.False(t, server.Exists("auth:otp:a@x.com"))
}

/*
TestRedisOtpStore_DeleteByEmail removes the record immediately.
*/
func TestRedisOtpStore_DeleteByEmail(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisOtpStore(t)
	require.NoError(t, store.Replace(ctx, testOtpRecord("a@x.com")))

	require.NoError(t, store.DeleteByEmail(ctx, "a@x.com"))

	found, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}
