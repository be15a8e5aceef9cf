// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, secure
// randomness) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer through narrow interfaces.
package sec

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
	"github.com/Airbotix-AI/airbotix-sub000/pkg/uuidv7"
)

// TokenKind discriminates access tokens from refresh tokens.
//
// A refresh token presented where an access token is expected (or vice versa)
// is always rejected, even when the signature is valid.
type TokenKind string

const (
	// TokenKindAccess marks short-lived, self-verifying request credentials.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh marks longer-lived, store-backed, revocable credentials.
	TokenKindRefresh TokenKind = "refresh"
)

// Client-safe token failures. These are the only errors token verification
// surfaces to callers; the underlying parse error never leaves the server.
var (
	ErrTokenInvalid = apperr.New(http.StatusUnauthorized, "TOKEN_INVALID", "Token is invalid")
	ErrTokenExpired = apperr.New(http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
)

// AuthClaims represents the payload embedded inside a signed token.
//
// # Why custom claims?
//
// By embedding the UserID and the token kind directly inside the JWT, the
// authentication middleware can reconstruct the active user context WITHOUT
// querying the database on every single API request. Only refresh tokens are
// additionally cross-checked against the refresh token store, because they
// must be revocable.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string    `json:"uid"`
	Kind   TokenKind `json:"knd"`
}

// IssuedToken bundles a signed token with the identifiers the caller needs
// to persist or report it.
type IssuedToken struct {
	// Signed is the compact serialized JWT handed to the client.
	Signed string
	// ID is the unique token identifier (the "jti" claim).
	ID string
	// ExpiresAt is the absolute expiry instant.
	ExpiresAt time.Time
}

// TokenService issues and verifies HMAC-signed (HS256) token pairs.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	// now is swappable in tests to exercise expiry behavior.
	now func() time.Time
}

// minSecretLength guards against weak HMAC keys. 32 bytes matches the
// HS256 output size.
const minSecretLength = 32

// NewTokenService creates a new TokenService.
//
// # Parameters
//   - secret: HMAC signing key (min 32 bytes).
//   - issuer: The "iss" claim stamped on every token.
//   - accessTTL: Lifetime of issued access tokens.
//   - refreshTTL: Lifetime of issued refresh tokens.
func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("sec: token secret must be at least %d bytes", minSecretLength)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("sec: token lifetimes must be positive")
	}

	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccessToken creates a signed, short-lived access token for the user.
func (service *TokenService) IssueAccessToken(userID string) (*IssuedToken, error) {
	return service.issue(userID, TokenKindAccess, service.accessTTL)
}

// IssueRefreshToken creates a signed, long-lived refresh token for the user.
//
// The returned [IssuedToken.ID] and [IssuedToken.ExpiresAt] are what the
// caller persists alongside the token hash in the refresh token store.
func (service *TokenService) IssueRefreshToken(userID string) (*IssuedToken, error) {
	return service.issue(userID, TokenKindRefresh, service.refreshTTL)
}

func (service *TokenService) issue(userID string, kind TokenKind, timeToLive time.Duration) (*IssuedToken, error) {
	currentTime := service.now()
	expiresAt := currentTime.Add(timeToLive)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuidv7.New(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Kind:   kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return &IssuedToken{
		Signed:    signedToken,
		ID:        claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyAccess validates signature, expiry, and kind of an access token.
//
// It returns [ErrTokenExpired] for stale tokens and [ErrTokenInvalid] for
// everything else, including a refresh token presented as an access token.
func (service *TokenService) VerifyAccess(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, TokenKindAccess)
}

// VerifyRefresh validates signature, expiry, and kind of a refresh token.
func (service *TokenService) VerifyRefresh(tokenString string) (*AuthClaims, error) {
	return service.verify(tokenString, TokenKindRefresh)
}

func (service *TokenService) verify(tokenString string, expectedKind TokenKind) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return service.secret, nil
		},
		jwt.WithIssuer(service.issuer),
		jwt.WithTimeFunc(func() time.Time { return service.now() }),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	// Kind confinement: an access token must never authorize a refresh and a
	// refresh token must never authorize a request.
	if claims.Kind != expectedKind {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Decode parses a token WITHOUT validating signature or expiry.
//
// # Security
//
// This is strictly for diagnostics (logging which subject a malformed request
// claimed to be). It must never be used to authorize anything.
func (service *TokenService) Decode(tokenString string) *AuthClaims {
	claims := &AuthClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}
