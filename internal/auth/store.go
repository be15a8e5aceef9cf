// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"time"
)

// UserStore persists user identities.
//
// Lookups return an apperr "not found" error when no row matches; Create
// returns a conflict error when the email is already taken, which the service
// treats as a lost find-or-create race and resolves by re-reading.
type UserStore interface {
	// FindByID returns the user with the given ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the user owning the given normalized email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a new user.
	Create(ctx context.Context, user *User) error

	// UpdateLastLogin stamps the user's most recent completed login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// OtpStore persists the single live sign-in code per email.
//
// Absence is a normal outcome in this flow, so FindByEmail returns (nil, nil)
// rather than an error when no record exists.
type OtpStore interface {
	// Replace atomically discards any existing record for record.Email and
	// stores record in its place.
	Replace(ctx context.Context, record *OtpRecord) error

	// FindByEmail returns the live record for the email, or nil.
	FindByEmail(ctx context.Context, email string) (*OtpRecord, error)

	// IncrementAttempts atomically bumps the failed-attempt counter and
	// returns the new value. Concurrent verifications must each observe a
	// distinct count.
	IncrementAttempts(ctx context.Context, email string) (int, error)

	// MarkUsed flags the record as consumed so replays of the same code are
	// rejected until the record ages out.
	MarkUsed(ctx context.Context, email string) error

	// DeleteByEmail removes the record for the email, if any.
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteExpired removes records past their expiry and reports how many.
	// Stores with native key expiry may report zero.
	DeleteExpired(ctx context.Context) (int64, error)
}

// RefreshTokenStore persists issued refresh tokens.
//
// FindByTokenHash returns (nil, nil) when no token matches: an unknown token
// is an expected input on the refresh path, not a storage failure.
type RefreshTokenStore interface {
	// Create inserts a newly issued token record.
	Create(ctx context.Context, token *RefreshToken) error

	// FindByTokenHash returns the record matching the hash, or nil.
	FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Revoke terminally marks the token with the given ID as revoked.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser revokes every live token belonging to the user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// Rotate revokes the token with revokeID and inserts replacement as one
	// atomic step, so no interleaving can observe both tokens usable or
	// neither recorded.
	Rotate(ctx context.Context, revokeID string, replacement *RefreshToken) error

	// DeleteExpired removes records past their expiry and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
