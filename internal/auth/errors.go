// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"net/http"
	"strconv"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
)

// Domain error taxonomy for the sign-in code lifecycle. Each failure mode has
// a distinct, stable code so clients can branch on it; the messages never echo
// the submitted code or any stored hash.
var (
	// ErrOtpNotFound is returned when no code record exists for the email.
	ErrOtpNotFound = apperr.New(
		http.StatusNotFound,
		"OTP_NOT_FOUND",
		"No sign-in code is pending for this email. Request a new one.",
	)

	// ErrOtpExpired is returned when the record exists but its lifetime has
	// elapsed. The record is discarded as a side effect of observing this.
	ErrOtpExpired = apperr.New(
		http.StatusBadRequest,
		"OTP_EXPIRED",
		"The sign-in code has expired. Request a new one.",
	)

	// ErrOtpInvalid is returned when the candidate code does not match, and
	// also when a previously consumed code is replayed.
	ErrOtpInvalid = apperr.New(
		http.StatusBadRequest,
		"OTP_INVALID",
		"The sign-in code is incorrect.",
	)

	// ErrOtpMaxAttempts is returned once the failed-attempt budget for the
	// current code is exhausted. The record is discarded so the only way
	// forward is a fresh code.
	ErrOtpMaxAttempts = apperr.New(
		http.StatusTooManyRequests,
		"OTP_MAX_ATTEMPTS_EXCEEDED",
		"Too many incorrect attempts. Request a new sign-in code.",
	)

	// ErrUserNotFound is returned by profile lookup when the authenticated
	// subject no longer resolves to a stored user.
	ErrUserNotFound = apperr.New(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"User not found.",
	)
)

// OtpCooldownActive reports that a code was issued too recently for the same
// email. retryAfterSeconds is surfaced both in the message and the
// Retry-After response header.
func OtpCooldownActive(retryAfterSeconds int) *apperr.AppError {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	return &apperr.AppError{
		Code:              "OTP_COOLDOWN_ACTIVE",
		Message:           "A sign-in code was sent recently. Try again in " + strconv.Itoa(retryAfterSeconds) + "s.",
		HTTPStatus:        http.StatusTooManyRequests,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// EmailSendFailed wraps a delivery failure from the mail sender. The code was
// already persisted at this point, so the client may retry the request after
// the resend cooldown without being told anything about the stored state.
func EmailSendFailed(cause error) *apperr.AppError {
	return &apperr.AppError{
		Code:       "EMAIL_SEND_FAILED",
		Message:    "The sign-in code email could not be delivered. Try again shortly.",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}
