// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package sec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	service, err := NewTokenService(testSecret, "airbotix.ai", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_WeakSecret verifies that short HMAC keys are rejected.
*/
func TestNewTokenService_WeakSecret(t *testing.T) {
	_, err := NewTokenService("too-short", "airbotix.ai", time.Minute, time.Hour)
	assert.Error(t, err)
}

/*
TestTokenService_IssueAndVerify covers the round trip for both token kinds.
*/
func TestTokenService_IssueAndVerify(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, access.Signed)
	require.NotEmpty(t, access.ID)

	claims, err := service.VerifyAccess(access.Signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, TokenKindAccess, claims.Kind)
	assert.Equal(t, access.ID, claims.ID)

	refresh, err := service.IssueRefreshToken("user-123")
	require.NoError(t, err)

	refreshClaims, err := service.VerifyRefresh(refresh.Signed)
	require.NoError(t, err)
	assert.Equal(t, TokenKindRefresh, refreshClaims.Kind)

	// Each issued token carries a distinct ID.
	assert.NotEqual(t, access.ID, refresh.ID)
}

/*
TestTokenService_RejectsWrongKind ensures an access token can never be used
where a refresh token is expected, and vice versa.
*/
func TestTokenService_RejectsWrongKind(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-123")
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken("user-123")
	require.NoError(t, err)

	_, err = service.VerifyRefresh(access.Signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = service.VerifyAccess(refresh.Signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

/*
TestTokenService_RejectsExpired advances the clock past the access TTL and
expects the dedicated expiry error.
*/
func TestTokenService_RejectsExpired(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-123")
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err = service.VerifyAccess(access.Signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

/*
TestTokenService_RejectsTampered flips a payload byte and expects rejection.
*/
func TestTokenService_RejectsTampered(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-123")
	require.NoError(t, err)

	tampered := []byte(access.Signed)
	tampered[len(tampered)/2] ^= 0x01

	_, err = service.VerifyAccess(string(tampered))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

/*
TestTokenService_RejectsForeignIssuer verifies tokens minted under a
different issuer are not accepted.
*/
func TestTokenService_RejectsForeignIssuer(t *testing.T) {
	service := newTestTokenService(t)

	foreign, err := NewTokenService(testSecret, "someone-else", 15*time.Minute, time.Hour)
	require.NoError(t, err)

	token, err := foreign.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = service.VerifyAccess(token.Signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

/*
TestTokenService_Decode reads claims out of tokens Verify would reject, so
diagnostics can name the claimed subject. Structural garbage yields nil.
*/
func TestTokenService_Decode(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-123")
	require.NoError(t, err)

	// Expired for Verify, still readable for Decode.
	service.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	_, err = service.VerifyAccess(access.Signed)
	require.ErrorIs(t, err, ErrTokenExpired)

	claims := service.Decode(access.Signed)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, TokenKindAccess, claims.Kind)

	// A broken signature does not stop decoding the payload.
	tampered := access.Signed[:len(access.Signed)-2] + "xx"
	claims = service.Decode(tampered)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)

	assert.Nil(t, service.Decode("not-a-token"))
}
