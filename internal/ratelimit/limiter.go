// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

/*
Package ratelimit implements a fixed-window counter keyed by arbitrary strings.

The auth flows apply it at two independent granularities (per-email code
requests, per-origin verification attempts) with independent thresholds, so a
flood of guesses against one email cannot be laundered by varying the origin,
and vice versa.

# Why fixed-window?

Fixed windows are simpler to reason about than sliding windows or token
buckets and are sufficient for abuse deterrence at this scale. The burst at
window boundaries is an accepted trade-off, not an oversight.

# Atomicity

Increments happen at the store layer (Redis INCR, or a mutex-held map), never
read-then-write in the caller, so concurrent calls cannot both observe a
count below the threshold and both proceed.
*/
package ratelimit

import (
	"context"
	"time"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
)

// State is the counter state after an increment. Callers compare Count
// against their threshold and can surface ResetTime as a retry hint.
type State struct {
	Count     int64
	ResetTime time.Time
}

// Store is the persistence contract for window counters.
//
// # Invariants
//
//   - Count is monotonically non-decreasing within a window.
//   - A record whose ResetTime has passed is treated as absent and recreated
//     fresh, never incremented.
type Store interface {
	// Increment atomically bumps the counter for key, creating a fresh
	// window (count = 1, reset = now + window) if none is live.
	Increment(ctx context.Context, key string, window time.Duration) (State, error)

	// Reset deletes the record for key (administrative unblock).
	Reset(ctx context.Context, key string) error

	// DeleteExpired removes records past their reset time, returning how
	// many were removed. Stores with native TTL may reclaim lazily and
	// report zero.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Limiter binds a [Store] to one key class's threshold and window.
type Limiter struct {
	store  Store
	max    int64
	window time.Duration
}

// NewLimiter constructs a [Limiter] allowing max events per window per key.
func NewLimiter(store Store, max int64, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		max:    max,
		window: window,
	}
}

// Increment bumps the counter for key and returns the resulting state.
func (l *Limiter) Increment(ctx context.Context, key string) (State, error) {
	return l.store.Increment(ctx, key, l.window)
}

// Allow increments the counter and fails with RATE_LIMIT_EXCEEDED once the
// count passes the threshold.
//
// The state is returned in both outcomes so callers can expose retry hints.
func (l *Limiter) Allow(ctx context.Context, key string) (State, error) {
	state, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return state, apperr.Internal(err)
	}

	if state.Count > l.max {
		retryAfter := int(time.Until(state.ResetTime).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return state, apperr.RateLimited(retryAfter)
	}

	return state, nil
}

// Reset clears the window for key (administrative unblock).
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// SweepExpired reclaims records past their reset time.
func (l *Limiter) SweepExpired(ctx context.Context) (int64, error) {
	return l.store.DeleteExpired(ctx)
}
