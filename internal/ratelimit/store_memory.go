// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryRecord is one key's live window.
type memoryRecord struct {
	count     int64
	resetTime time.Time
}

// MemoryStore is a mutex-guarded, in-process [Store].
//
// # Usage
//
// Suitable for single-process deployments, development mode, and tests.
// Multi-process deployments must use the Redis store so all processes share
// one logical counter per key.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord

	// now is swappable in tests to cross window boundaries deterministically.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
}

// Increment implements [Store]. The whole read-modify-write runs under one
// lock, which is the in-process equivalent of Redis INCR.
func (store *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (State, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	currentTime := store.now()
	record, found := store.records[key]

	// A record past its reset time is logically expired: recreate, never increment.
	if !found || !currentTime.Before(record.resetTime) {
		record = &memoryRecord{
			count:     1,
			resetTime: currentTime.Add(window),
		}
		store.records[key] = record
		return State{Count: record.count, ResetTime: record.resetTime}, nil
	}

	record.count++
	return State{Count: record.count, ResetTime: record.resetTime}, nil
}

// Reset implements [Store].
func (store *MemoryStore) Reset(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.records, key)
	return nil
}

// DeleteExpired implements [Store].
func (store *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	currentTime := store.now()
	var deleted int64

	for key, record := range store.records {
		if !currentTime.Before(record.resetTime) {
			delete(store.records, key)
			deleted++
		}
	}

	return deleted, nil
}
