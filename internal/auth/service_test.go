// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/sec"
	"github.com/Airbotix-AI/airbotix-sub000/internal/ratelimit"
)

// captureSender records outgoing mail so tests can extract the delivered
// code. Setting fail makes every send report a provider failure.
type captureSender struct {
	lastTo   string
	lastBody string
	sent     int
	fail     bool
}

func (sender *captureSender) Send(_ context.Context, to, _, body string) error {
	if sender.fail {
		return errors.New("smtp unavailable")
	}
	sender.sent++
	sender.lastTo = to
	sender.lastBody = body
	return nil
}

var codePattern = regexp.MustCompile(`[0-9]{6}`)

func (sender *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	code := codePattern.FindString(sender.lastBody)
	require.NotEmpty(t, code, "no code found in delivered mail")
	return code
}

// testHarness bundles a fully wired service on in-memory stores with a
// controllable clock shared by every collaborator.
type testHarness struct {
	service *Service
	sender  *captureSender
	tokens  *sec.TokenService
	clock   *time.Time
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	// The controllable clock starts at the real present so fake-clock expiry
	// checks line up with the real-time instants stamped into signed tokens.
	currentTime := time.Now()
	clock := &currentTime
	now := func() time.Time { return *clock }

	tokenService, err := sec.NewTokenService(
		"0123456789abcdef0123456789abcdef", "airbotix.ai",
		15*time.Minute, 168*time.Hour,
	)
	require.NoError(t, err)

	otpStore := NewMemoryOtpStore()
	otpStore.now = now
	otpManager := NewOtpManager(otpStore, 6, 10*time.Minute, 5)
	otpManager.now = now

	sender := &captureSender{}
	service := NewService(
		NewMemoryUserStore(),
		NewMemoryRefreshTokenStore(),
		otpManager,
		tokenService,
		sender,
		ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 5, time.Hour),
		ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 20, time.Hour),
		60*time.Second,
	)
	service.now = now

	return &testHarness{service: service, sender: sender, tokens: tokenService, clock: clock}
}

func (h *testHarness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

// login runs the full request → extract → verify flow for email.
func (h *testHarness) login(t *testing.T, email string) *LoginSession {
	t.Helper()
	ctx := context.Background()

	_, err := h.service.RequestCode(ctx, email, "10.0.0.1")
	require.NoError(t, err)

	session, err := h.service.VerifyCode(ctx, email, h.sender.lastCode(t), "10.0.0.1")
	require.NoError(t, err)
	return session
}

/*
TestService_RequestAndVerify runs the happy path end to end: request a code,
extract it from the delivered mail, verify, and land a full session.
*/
func TestService_RequestAndVerify(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	result, err := harness.service.RequestCode(ctx, "A@X.com", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 10, result.ExpiresInMinutes)
	assert.Equal(t, 60, result.CooldownSeconds)

	// Delivery goes to the normalized address.
	assert.Equal(t, "a@x.com", harness.sender.lastTo)

	harness.advance(time.Minute)

	session, err := harness.service.VerifyCode(ctx, "a@x.com", harness.sender.lastCode(t), "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", session.User.Email)
	require.NotNil(t, session.User.LastLoginAt)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.NotEmpty(t, session.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", session.Tokens.TokenType)

	// The access token resolves back to the created user.
	claims, err := harness.tokens.VerifyAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
}

/*
TestService_VerifyIsIdempotentPerCode replays a consumed code and expects
OTP_INVALID, never a second session.
*/
func TestService_VerifyIsIdempotentPerCode(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.NoError(t, err)
	code := harness.sender.lastCode(t)

	_, err = harness.service.VerifyCode(ctx, "a@x.com", code, "10.0.0.1")
	require.NoError(t, err)

	_, err = harness.service.VerifyCode(ctx, "a@x.com", code, "10.0.0.1")
	assert.ErrorIs(t, err, ErrOtpInvalid)
}

/*
TestService_ReturningUserKeepsIdentity logs the same email in twice and
expects one stable user ID.
*/
func TestService_ReturningUserKeepsIdentity(t *testing.T) {
	harness := newTestHarness(t)

	first := harness.login(t, "a@x.com")

	harness.advance(2 * time.Minute)
	second := harness.login(t, "a@x.com")

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.True(t, second.User.LastLoginAt.After(*first.User.LastLoginAt))
}

/*
TestService_ResendCooldown enforces the cooldown boundary exactly: a resend
inside the window fails, one second past it succeeds.
*/
func TestService_ResendCooldown(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.NoError(t, err)

	harness.advance(30 * time.Second)
	_, err = harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "OTP_COOLDOWN_ACTIVE"))

	harness.advance(31 * time.Second)
	_, err = harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	assert.NoError(t, err)
}

/*
TestService_RequestRateLimit exhausts the per-email request window.
*/
func TestService_RequestRateLimit(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
		require.NoError(t, err, "request %d", i+1)
		harness.advance(2 * time.Minute) // Clear the resend cooldown between requests.
	}

	_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RATE_LIMIT_EXCEEDED"))
}

/*
TestService_OriginRateLimitIsIndependent floods one origin across many
emails: the origin window trips even though every email is under its own
limit.
*/
func TestService_OriginRateLimitIsIndependent(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	for _, email := range emails {
		_, err := harness.service.RequestCode(ctx, email, "10.0.0.9")
		require.NoError(t, err)
	}

	_, err := harness.service.RequestCode(ctx, "f@x.com", "10.0.0.9")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RATE_LIMIT_EXCEEDED"))

	// A different origin is untouched.
	_, err = harness.service.RequestCode(ctx, "f@x.com", "10.0.0.10")
	assert.NoError(t, err)
}

/*
TestService_VerifyRateLimit floods the verify flow with wrong guesses: the
window trips on the call after the limit, and once tripped it rejects even a
correct code before the code is ever inspected.
*/
func TestService_VerifyRateLimit(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.NoError(t, err)
	wrong := wrongGuess(harness.sender.lastCode(t))

	for i := 0; i < 20; i++ {
		_, err := harness.service.VerifyCode(ctx, "a@x.com", wrong, "10.0.0.1")
		require.Error(t, err, "guess %d", i+1)
		assert.False(t, apperr.HasCode(err, "RATE_LIMIT_EXCEEDED"), "guess %d tripped early", i+1)
	}

	// A fresh, correct code is still rejected by the window.
	harness.advance(2 * time.Minute)
	_, err = harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.NoError(t, err)

	_, err = harness.service.VerifyCode(ctx, "a@x.com", harness.sender.lastCode(t), "10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RATE_LIMIT_EXCEEDED"))
}

// wrongGuess flips the last digit of code.
func wrongGuess(code string) string {
	last := code[len(code)-1]
	return code[:len(code)-1] + string('0'+(last-'0'+1)%10)
}

/*
TestService_EmailSendFailure surfaces EMAIL_SEND_FAILED while keeping the
stored code valid for a later retry.
*/
func TestService_EmailSendFailure(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	harness.sender.fail = true
	_, err := harness.service.RequestCode(ctx, "a@x.com", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "EMAIL_SEND_FAILED"))
}

/*
TestService_RefreshRotation exchanges a refresh token, then replays the
original token and expects TOKEN_INVALID.
*/
func TestService_RefreshRotation(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	session := harness.login(t, "a@x.com")
	original := session.Tokens.RefreshToken

	pair, err := harness.service.RefreshSession(ctx, original)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, original, pair.RefreshToken)

	// The rotated-out token is terminally dead.
	_, err = harness.service.RefreshSession(ctx, original)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	// The replacement still works.
	_, err = harness.service.RefreshSession(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_RefreshRejectsGarbage covers unknown and malformed tokens.
*/
func TestService_RefreshRejectsGarbage(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	_, err := harness.service.RefreshSession(ctx, "not-a-token")
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	// A genuine access token is still not a refresh token.
	session := harness.login(t, "a@x.com")
	_, err = harness.service.RefreshSession(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestService_RefreshExpired advances past the refresh TTL and expects
TOKEN_EXPIRED plus opportunistic revocation.
*/
func TestService_RefreshExpired(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	session := harness.login(t, "a@x.com")

	harness.advance(169 * time.Hour)

	_, err := harness.service.RefreshSession(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)

	// After the opportunistic revoke, the failure hardens to TOKEN_INVALID.
	_, err = harness.service.RefreshSession(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestService_Logout revokes the session; the revoked token can never refresh
again, and logging out twice stays a success.
*/
func TestService_Logout(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	session := harness.login(t, "a@x.com")

	require.NoError(t, harness.service.Logout(ctx, session.Tokens.RefreshToken))

	_, err := harness.service.RefreshSession(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	// Idempotent: repeated and empty logouts are no-op successes.
	assert.NoError(t, harness.service.Logout(ctx, session.Tokens.RefreshToken))
	assert.NoError(t, harness.service.Logout(ctx, ""))
	assert.NoError(t, harness.service.Logout(ctx, "unknown-token"))
}

/*
TestService_LogoutAll revokes every live session of the user at once.
*/
func TestService_LogoutAll(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	first := harness.login(t, "a@x.com")
	harness.advance(2 * time.Minute)
	second := harness.login(t, "a@x.com")

	require.NoError(t, harness.service.LogoutAll(ctx, first.User.ID))

	_, err := harness.service.RefreshSession(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
	_, err = harness.service.RefreshSession(ctx, second.Tokens.RefreshToken)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestService_Profile resolves the authenticated subject and reports
USER_NOT_FOUND for unknown IDs.
*/
func TestService_Profile(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()

	session := harness.login(t, "a@x.com")

	user, err := harness.service.Profile(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	_, err = harness.service.Profile(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
