// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/constants"
)

// Hash field names for the per-email code record.
const (
	otpFieldID        = "id"
	otpFieldEmail     = "email"
	otpFieldCodeHash  = "code_hash"
	otpFieldAttempts  = "attempts"
	otpFieldIsUsed    = "is_used"
	otpFieldExpiresAt = "expires_at"
	otpFieldCreatedAt = "created_at"
)

// The record can hit its PEXPIREAT between a lookup and the follow-up
// mutation (the bcrypt compare sits in that window). A bare HINCRBY or HSET
// would then recreate the key as a partial hash with no TTL, wedging every
// later lookup. Both mutations are therefore guarded on key existence so an
// expired record stays gone.
var (
	incrementIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
`)

	setFieldIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)
)

// RedisOtpStore implements [OtpStore] on a Redis hash per email.
//
// One key per email ("auth:otp:<email>") keeps the one-live-record rule
// structural: a Replace is a transactional DEL+HSET on the same key, and
// HINCRBY gives attempt counting its atomicity. Keys carry a PEXPIREAT at the
// record's expiry so Redis reclaims stale codes on its own.
type RedisOtpStore struct {
	client *redis.Client
}

// NewRedisOtpStore creates a Redis-backed code store.
func NewRedisOtpStore(client *redis.Client) *RedisOtpStore {
	return &RedisOtpStore{client: client}
}

func (store *RedisOtpStore) key(email string) string {
	return constants.RedisPrefixOtp + email
}

func (store *RedisOtpStore) Replace(ctx context.Context, record *OtpRecord) error {
	key := store.key(record.Email)

	pipe := store.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		otpFieldID, record.ID,
		otpFieldEmail, record.Email,
		otpFieldCodeHash, record.CodeHash,
		otpFieldAttempts, record.Attempts,
		otpFieldIsUsed, boolField(record.IsUsed),
		otpFieldExpiresAt, record.ExpiresAt.UnixMilli(),
		otpFieldCreatedAt, record.CreatedAt.UnixMilli(),
	)
	pipe.PExpireAt(ctx, key, record.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis_otp_replace_failed: %w", err)
	}
	return nil
}

func (store *RedisOtpStore) FindByEmail(ctx context.Context, email string) (*OtpRecord, error) {
	fields, err := store.client.HGetAll(ctx, store.key(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_otp_lookup_failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	if fields[otpFieldCodeHash] == "" || fields[otpFieldExpiresAt] == "" {
		// Partial hash left behind by an unguarded writer. Reclaim it and
		// report the record absent rather than failing every lookup.
		_ = store.client.Del(ctx, store.key(email)).Err()
		return nil, nil
	}

	attempts, err := strconv.Atoi(fields[otpFieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("redis_otp_corrupt_attempts: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields[otpFieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis_otp_corrupt_expiry: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields[otpFieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis_otp_corrupt_created: %w", err)
	}

	return &OtpRecord{
		ID:        fields[otpFieldID],
		Email:     fields[otpFieldEmail],
		CodeHash:  fields[otpFieldCodeHash],
		Attempts:  attempts,
		IsUsed:    fields[otpFieldIsUsed] == "1",
		ExpiresAt: time.UnixMilli(expiresAt),
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}

func (store *RedisOtpStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	attempts, err := incrementIfExists.Run(ctx, store.client,
		[]string{store.key(email)}, otpFieldAttempts).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis_otp_increment_failed: %w", err)
	}
	if attempts < 0 {
		// Record expired out from under the caller; nothing to count.
		return 0, nil
	}
	return int(attempts), nil
}

func (store *RedisOtpStore) MarkUsed(ctx context.Context, email string) error {
	err := setFieldIfExists.Run(ctx, store.client,
		[]string{store.key(email)}, otpFieldIsUsed, "1").Err()
	if err != nil {
		return fmt.Errorf("redis_otp_mark_used_failed: %w", err)
	}
	return nil
}

func (store *RedisOtpStore) DeleteByEmail(ctx context.Context, email string) error {
	if err := store.client.Del(ctx, store.key(email)).Err(); err != nil {
		return fmt.Errorf("redis_otp_delete_failed: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op for Redis: PEXPIREAT on each key makes the server
// reclaim stale records natively.
func (store *RedisOtpStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

func boolField(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
