// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

/*
Package auth implements the passwordless email authentication core.

It covers the full credential lifecycle: one-time sign-in codes delivered by
email, verification with expiry and attempt limits, issuance of signed
access/refresh token pairs, rotation-on-use of refresh tokens, and the
fixed-window abuse limits that guard all of it.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
transport or storage dependencies; the [Service] orchestrates them through
narrow store interfaces, so every collaborator is independently testable and
swappable (in-memory vs. durable store).
*/
package auth

import "time"

// # Domain Entities

// User represents an identity established by verifying an email address.
//
// Users are created on the first successful code verification for a
// previously unseen email (find-or-create) and are never deleted by the auth
// flows themselves.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`

	// LastLoginAt is nil until the first completed login.
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// OtpRecord is the stored state of one live sign-in code.
//
// Exactly one live record may exist per email at a time; issuing a new code
// always discards the previous record first. Only the hash of the code is
// stored — the plaintext exists solely in the delivery email.
type OtpRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"` // Never serialized. The hash alone must not leave the store layer.
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshToken tracks one issued refresh credential.
//
// The ID equals the signed token's "jti" claim; TokenHash is the SHA-256 of
// the signed value used for lookup. A token is usable for refresh only while
// IsRevoked is false and ExpiresAt is in the future. Revocation is terminal.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the signed token. Omitted for security.
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail        = "email"
	FieldCode         = "code"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldTokens       = "tokens"
	FieldMessage      = "message"
)
