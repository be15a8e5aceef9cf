// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
)

// In-memory store implementations. Used by the test suites and by local
// development without a database; each store is safe for concurrent use
// through a single mutex, which also makes Rotate trivially atomic.

// MemoryUserStore implements [UserStore] over process-local maps.
type MemoryUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string // email → user ID
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (store *MemoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (store *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id, ok := store.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *store.byID[id]
	return &copied, nil
}

func (store *MemoryUserStore) Create(_ context.Context, user *User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.byEmail[user.Email]; exists {
		return apperr.Conflict("Email already registered")
	}
	copied := *user
	store.byID[user.ID] = &copied
	store.byEmail[user.Email] = user.ID
	return nil
}

func (store *MemoryUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stamped := at
	user.LastLoginAt = &stamped
	return nil
}

// MemoryOtpStore implements [OtpStore] over a process-local map keyed by
// email. Expiry is enforced lazily by DeleteExpired; reads return whatever is
// stored and leave staleness decisions to the caller.
type MemoryOtpStore struct {
	mu      sync.Mutex
	records map[string]*OtpRecord
	now     func() time.Time
}

// NewMemoryOtpStore creates an empty in-memory code store.
func NewMemoryOtpStore() *MemoryOtpStore {
	return &MemoryOtpStore{
		records: make(map[string]*OtpRecord),
		now:     time.Now,
	}
}

func (store *MemoryOtpStore) Replace(_ context.Context, record *OtpRecord) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *record
	store.records[record.Email] = &copied
	return nil
}

func (store *MemoryOtpStore) FindByEmail(_ context.Context, email string) (*OtpRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.records[email]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (store *MemoryOtpStore) IncrementAttempts(_ context.Context, email string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.records[email]
	if !ok {
		return 0, nil
	}
	record.Attempts++
	return record.Attempts, nil
}

func (store *MemoryOtpStore) MarkUsed(_ context.Context, email string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if record, ok := store.records[email]; ok {
		record.IsUsed = true
	}
	return nil
}

func (store *MemoryOtpStore) DeleteByEmail(_ context.Context, email string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.records, email)
	return nil
}

func (store *MemoryOtpStore) DeleteExpired(_ context.Context) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	cutoff := store.now()
	var removed int64
	for email, record := range store.records {
		if cutoff.After(record.ExpiresAt) {
			delete(store.records, email)
			removed++
		}
	}
	return removed, nil
}

// MemoryRefreshTokenStore implements [RefreshTokenStore] over process-local
// maps, with a hash → ID index for the lookup path.
type MemoryRefreshTokenStore struct {
	mu     sync.Mutex
	byID   map[string]*RefreshToken
	byHash map[string]string // token hash → token ID
	now    func() time.Time
}

// NewMemoryRefreshTokenStore creates an empty in-memory refresh token store.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{
		byID:   make(map[string]*RefreshToken),
		byHash: make(map[string]string),
		now:    time.Now,
	}
}

func (store *MemoryRefreshTokenStore) Create(_ context.Context, token *RefreshToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.insert(token)
	return nil
}

func (store *MemoryRefreshTokenStore) FindByTokenHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id, ok := store.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	copied := *store.byID[id]
	return &copied, nil
}

func (store *MemoryRefreshTokenStore) Revoke(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if token, ok := store.byID[id]; ok {
		token.IsRevoked = true
	}
	return nil
}

func (store *MemoryRefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, token := range store.byID {
		if token.UserID == userID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (store *MemoryRefreshTokenStore) Rotate(_ context.Context, revokeID string, replacement *RefreshToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if token, ok := store.byID[revokeID]; ok {
		token.IsRevoked = true
	}
	store.insert(replacement)
	return nil
}

func (store *MemoryRefreshTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	cutoff := store.now()
	var removed int64
	for id, token := range store.byID {
		if cutoff.After(token.ExpiresAt) {
			delete(store.byHash, token.TokenHash)
			delete(store.byID, id)
			removed++
		}
	}
	return removed, nil
}

// insert stores a copy of token under both indexes. Caller holds the lock.
func (store *MemoryRefreshTokenStore) insert(token *RefreshToken) {
	copied := *token
	store.byID[token.ID] = &copied
	store.byHash[token.TokenHash] = token.ID
}
