// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/sec"
	"github.com/Airbotix-AI/airbotix-sub000/pkg/uuidv7"
)

// OtpManager owns the sign-in code lifecycle: generation, storage, and the
// verification ladder. It never sees transport concerns and never stores a
// plaintext code.
type OtpManager struct {
	store       OtpStore
	codeLength  int
	timeToLive  time.Duration
	maxAttempts int
	now         func() time.Time // Injectable clock for deterministic tests.
}

// NewOtpManager creates an OtpManager. Zero or negative policy values fall
// back to the package defaults.
func NewOtpManager(store OtpStore, codeLength int, timeToLive time.Duration, maxAttempts int) *OtpManager {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if timeToLive <= 0 {
		timeToLive = DefaultCodeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &OtpManager{
		store:       store,
		codeLength:  codeLength,
		timeToLive:  timeToLive,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// CodeLength reports the configured number of digits per code.
func (manager *OtpManager) CodeLength() int { return manager.codeLength }

// TTL reports the configured lifetime of an issued code.
func (manager *OtpManager) TTL() time.Duration { return manager.timeToLive }

// Active returns the live, unexpired record for the email, or nil when none
// exists. Expired records are treated as absent without being deleted here;
// the sweeper or the next issue reclaims them.
func (manager *OtpManager) Active(ctx context.Context, email string) (*OtpRecord, error) {
	record, err := manager.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("otp_lookup_failed: %w", err)
	}
	if record == nil || manager.now().After(record.ExpiresAt) {
		return nil, nil
	}
	return record, nil
}

// Issue generates a fresh code for the email, replacing any previous record,
// and returns the plaintext code exactly once for delivery. Only the bcrypt
// hash is stored.
func (manager *OtpManager) Issue(ctx context.Context, email string) (string, *OtpRecord, error) {
	code, err := sec.SecureDigits(manager.codeLength)
	if err != nil {
		return "", nil, fmt.Errorf("otp_generate_failed: %w", err)
	}

	codeHash, err := sec.HashCode(code)
	if err != nil {
		return "", nil, fmt.Errorf("otp_hash_failed: %w", err)
	}

	issuedAt := manager.now()
	record := &OtpRecord{
		ID:        uuidv7.New(),
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: issuedAt.Add(manager.timeToLive),
		CreatedAt: issuedAt,
	}
	if err := manager.store.Replace(ctx, record); err != nil {
		return "", nil, fmt.Errorf("otp_store_failed: %w", err)
	}
	return code, record, nil
}

// Verify checks a candidate code against the live record for the email.
//
// The ladder is evaluated strictly in order:
//
//  1. No record → ErrOtpNotFound.
//  2. Record expired → record deleted, ErrOtpExpired.
//  3. Record already consumed → ErrOtpInvalid (replay of a used code).
//  4. Attempt budget already spent → record deleted, ErrOtpMaxAttempts.
//  5. Hash mismatch → attempt counter bumped atomically, ErrOtpInvalid. The
//     exhausted budget is only reported on the following call, so the count
//     of ErrOtpInvalid responses always equals the count of wrong guesses.
//  6. Match → record marked used; nil.
//
// Marking the record used rather than deleting it means a replay of the same
// code before expiry fails as invalid, not as absent.
func (manager *OtpManager) Verify(ctx context.Context, email, candidate string) error {
	record, err := manager.store.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("otp_lookup_failed: %w", err)
	}
	if record == nil {
		return ErrOtpNotFound
	}

	if manager.now().After(record.ExpiresAt) {
		if err := manager.store.DeleteByEmail(ctx, email); err != nil {
			return fmt.Errorf("otp_delete_failed: %w", err)
		}
		return ErrOtpExpired
	}

	if record.IsUsed {
		return ErrOtpInvalid
	}

	if record.Attempts >= manager.maxAttempts {
		if err := manager.store.DeleteByEmail(ctx, email); err != nil {
			return fmt.Errorf("otp_delete_failed: %w", err)
		}
		return ErrOtpMaxAttempts
	}

	if !sec.CheckCodeHash(candidate, record.CodeHash) {
		if _, err := manager.store.IncrementAttempts(ctx, email); err != nil {
			return fmt.Errorf("otp_attempt_count_failed: %w", err)
		}
		return ErrOtpInvalid
	}

	if err := manager.store.MarkUsed(ctx, email); err != nil {
		return fmt.Errorf("otp_mark_used_failed: %w", err)
	}
	return nil
}

// SweepExpired removes records past their expiry. Meant to run periodically
// from the background sweeper.
func (manager *OtpManager) SweepExpired(ctx context.Context) (int64, error) {
	return manager.store.DeleteExpired(ctx)
}
