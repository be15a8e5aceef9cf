// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Airbotix-AI/airbotix-sub000/internal/mail"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/ctxutil"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/dberr"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/sec"
	"github.com/Airbotix-AI/airbotix-sub000/internal/ratelimit"
	"github.com/Airbotix-AI/airbotix-sub000/pkg/mailaddr"
	"github.com/Airbotix-AI/airbotix-sub000/pkg/uuidv7"
)

// RequestCodeResult is returned to the client after a code was issued and
// queued for delivery. It deliberately carries nothing derived from the code.
type RequestCodeResult struct {
	ExpiresInMinutes int `json:"expires_in_minutes"`
	CooldownSeconds  int `json:"cooldown_seconds"`
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // Access token lifetime in seconds.
}

// LoginSession is the result of a completed verification: the resolved user
// plus a fresh token pair.
type LoginSession struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// Service orchestrates the authentication flows. It owns no state beyond its
// collaborators; every store call is sequential within a flow, so the service
// itself needs no synchronization.
type Service struct {
	users          UserStore
	refreshTokens  RefreshTokenStore
	otp            *OtpManager
	tokens         *sec.TokenService
	sender         mail.Sender
	requestLimiter *ratelimit.Limiter
	verifyLimiter  *ratelimit.Limiter
	resendCooldown time.Duration
	now            func() time.Time // Injectable clock for deterministic tests.
}

// NewService wires the orchestrator. A non-positive resendCooldown falls back
// to the package default.
func NewService(
	users UserStore,
	refreshTokens RefreshTokenStore,
	otpManager *OtpManager,
	tokenService *sec.TokenService,
	sender mail.Sender,
	requestLimiter *ratelimit.Limiter,
	verifyLimiter *ratelimit.Limiter,
	resendCooldown time.Duration,
) *Service {
	if resendCooldown <= 0 {
		resendCooldown = DefaultResendCooldown
	}
	return &Service{
		users:          users,
		refreshTokens:  refreshTokens,
		otp:            otpManager,
		tokens:         tokenService,
		sender:         sender,
		requestLimiter: requestLimiter,
		verifyLimiter:  verifyLimiter,
		resendCooldown: resendCooldown,
		now:            time.Now,
	}
}

// CodeLength reports the configured sign-in code length, for input validation
// at the transport boundary.
func (service *Service) CodeLength() int { return service.otp.CodeLength() }

// RequestCode issues a sign-in code for the email and delivers it by mail.
//
// originKey identifies the caller's network origin (typically the client IP)
// and gets its own rate-limit window, independent of the per-email window;
// either breaching rejects the request. An empty originKey skips the origin
// window (trusted internal callers).
func (service *Service) RequestCode(ctx context.Context, email, originKey string) (*RequestCodeResult, error) {
	email = mailaddr.Normalize(email)

	// ── 1. Rate limits, before any store state is touched ──
	if _, err := service.requestLimiter.Allow(ctx, rateKeyRequestEmail+email); err != nil {
		return nil, err
	}
	if originKey != "" {
		if _, err := service.requestLimiter.Allow(ctx, rateKeyRequestOrigin+originKey); err != nil {
			return nil, err
		}
	}

	// ── 2. Resend cooldown against the currently live code ──
	active, err := service.otp.Active(ctx, email)
	if err != nil {
		return nil, err
	}
	if active != nil {
		elapsed := service.now().Sub(active.CreatedAt)
		if elapsed < service.resendCooldown {
			remaining := service.resendCooldown - elapsed
			return nil, OtpCooldownActive(int(remaining.Round(time.Second).Seconds()))
		}
	}

	// ── 3. Issue and deliver ──
	code, record, err := service.otp.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	subject, body := mail.OtpMessage(code, service.otp.TTL())
	if err := service.sender.Send(ctx, email, subject, body); err != nil {
		// The stored code stays valid; the client may retry delivery after
		// the cooldown without burning another code.
		ctxutil.GetLogger(ctx).Warn("otp email delivery failed",
			slog.String("otp_id", record.ID),
			slog.Any("error", err),
		)
		return nil, EmailSendFailed(err)
	}

	return &RequestCodeResult{
		ExpiresInMinutes: int(service.otp.TTL().Minutes()),
		CooldownSeconds:  int(service.resendCooldown.Seconds()),
	}, nil
}

// VerifyCode checks a submitted code and, on success, logs the user in:
// find-or-create by email, stamp last login, issue a token pair, and persist
// the refresh token. Rate limits are checked before the code is inspected so
// attempt-limit exhaustion and rate-limit exhaustion stay independent.
func (service *Service) VerifyCode(ctx context.Context, email, code, originKey string) (*LoginSession, error) {
	email = mailaddr.Normalize(email)

	// ── 1. Rate limits ──
	if _, err := service.verifyLimiter.Allow(ctx, rateKeyVerifyEmail+email); err != nil {
		return nil, err
	}
	if originKey != "" {
		if _, err := service.verifyLimiter.Allow(ctx, rateKeyVerifyOrigin+originKey); err != nil {
			return nil, err
		}
	}

	// ── 2. Code verification ──
	if err := service.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	// ── 3. Find-or-create the user ──
	user, err := service.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	// ── 4. Stamp the login ──
	loginAt := service.now()
	if err := service.users.UpdateLastLogin(ctx, user.ID, loginAt); err != nil {
		return nil, fmt.Errorf("last_login_update_failed: %w", err)
	}
	user.LastLoginAt = &loginAt

	// ── 5. Issue and persist the session ──
	pair, err := service.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginSession{User: user, Tokens: pair}, nil
}

// RefreshSession exchanges a live refresh token for a new pair, revoking the
// presented token in the same atomic step. Replaying a rotated, revoked, or
// unknown token fails TOKEN_INVALID; an expired but otherwise genuine token
// fails TOKEN_EXPIRED and is revoked opportunistically.
func (service *Service) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	// ── 1. Signature and shape, before any store access ──
	claims, verifyErr := service.tokens.VerifyRefresh(refreshToken)
	if verifyErr != nil && !apperr.HasCode(verifyErr, "TOKEN_EXPIRED") {
		return nil, sec.ErrTokenInvalid
	}

	// ── 2. Stored record ──
	record, err := service.refreshTokens.FindByTokenHash(ctx, sec.HashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("refresh_token_lookup_failed: %w", err)
	}
	if record == nil || record.IsRevoked {
		return nil, sec.ErrTokenInvalid
	}
	if claims != nil && claims.UserID != record.UserID {
		return nil, sec.ErrTokenInvalid
	}

	// ── 3. Expiry, with opportunistic revocation ──
	if verifyErr != nil || service.now().After(record.ExpiresAt) {
		if err := service.refreshTokens.Revoke(ctx, record.ID); err != nil {
			ctxutil.GetLogger(ctx).Warn("expired refresh token revocation failed",
				slog.String("token_id", record.ID),
				slog.Any("error", err),
			)
		}
		return nil, sec.ErrTokenExpired
	}

	// ── 4. Subject must still resolve ──
	if _, err := service.users.FindByID(ctx, record.UserID); err != nil {
		return nil, sec.ErrTokenInvalid
	}

	// ── 5. Rotate ──
	access, err := service.tokens.IssueAccessToken(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("access_token_issue_failed: %w", err)
	}
	next, err := service.tokens.IssueRefreshToken(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh_token_issue_failed: %w", err)
	}

	replacement := &RefreshToken{
		ID:        next.ID,
		UserID:    record.UserID,
		TokenHash: sec.HashToken(next.Signed),
		ExpiresAt: next.ExpiresAt,
		CreatedAt: service.now(),
	}
	if err := service.refreshTokens.Rotate(ctx, record.ID, replacement); err != nil {
		return nil, fmt.Errorf("refresh_token_rotate_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  access.Signed,
		RefreshToken: next.Signed,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(access.ExpiresAt.Sub(service.now()).Round(time.Second).Seconds()),
	}, nil
}

// Logout revokes the presented refresh token. A missing or unknown token is a
// no-op success: client-side logout must never fail just because the client
// already lost its token.
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	record, err := service.refreshTokens.FindByTokenHash(ctx, sec.HashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("refresh_token_lookup_failed: %w", err)
	}
	if record == nil || record.IsRevoked {
		return nil
	}
	if err := service.refreshTokens.Revoke(ctx, record.ID); err != nil {
		return fmt.Errorf("refresh_token_revoke_failed: %w", err)
	}
	return nil
}

// LogoutAll revokes every live refresh token belonging to the user.
func (service *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := service.refreshTokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("refresh_token_revoke_all_failed: %w", err)
	}
	return nil
}

// Profile returns the user for an authenticated subject.
func (service *Service) Profile(ctx context.Context, userID string) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user_lookup_failed: %w", err)
	}
	return user, nil
}

// SweepExpiredTokens removes refresh token rows past their expiry.
func (service *Service) SweepExpiredTokens(ctx context.Context) (int64, error) {
	return service.refreshTokens.DeleteExpired(ctx)
}

// SweepExpiredCodes removes sign-in code records past their expiry.
func (service *Service) SweepExpiredCodes(ctx context.Context) (int64, error) {
	return service.otp.SweepExpired(ctx)
}

// findOrCreateUser resolves the user for a verified email, creating one on
// first sight. A create that loses a concurrent race surfaces as a conflict
// and is resolved by re-reading the winner's row.
func (service *Service) findOrCreateUser(ctx context.Context, email string) (*User, error) {
	user, err := service.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !apperr.HasCode(err, "NOT_FOUND") {
		return nil, fmt.Errorf("user_lookup_failed: %w", err)
	}

	user = &User{
		ID:        uuidv7.New(),
		Email:     email,
		CreatedAt: service.now(),
	}
	if err := service.users.Create(ctx, user); err != nil {
		if dberr.IsConflict(err) {
			return service.users.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("user_create_failed: %w", err)
	}
	return user, nil
}

// issueSession mints a token pair for the user and persists the refresh half.
func (service *Service) issueSession(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := service.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("access_token_issue_failed: %w", err)
	}
	refresh, err := service.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("refresh_token_issue_failed: %w", err)
	}

	record := &RefreshToken{
		ID:        refresh.ID,
		UserID:    userID,
		TokenHash: sec.HashToken(refresh.Signed),
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: service.now(),
	}
	if err := service.refreshTokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("refresh_token_store_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  access.Signed,
		RefreshToken: refresh.Signed,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(access.ExpiresAt.Sub(service.now()).Round(time.Second).Seconds()),
	}, nil
}
