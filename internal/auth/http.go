// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/middleware"
	requestutil "github.com/Airbotix-AI/airbotix-sub000/internal/platform/request"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/respond"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the HTTP delivery layer for passwordless authentication.
//
// It is strictly a transport adapter: input validation, status codes, and
// JSON shapes live here; every decision about codes, tokens, and limits lives
// in [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with the authentication endpoints.
//
// # Endpoints
//   - POST /request-code : Issues and emails a sign-in code.
//   - POST /verify-code  : Verifies a code and returns user + tokens.
//   - POST /refresh      : Rotates a refresh token for a new pair.
//   - POST /logout       : Revokes the supplied refresh token.
//   - POST /logout-all   : Revokes every session of the caller.
//   - GET  /me           : Returns the authenticated user's profile.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/request-code", handler.requestCode)
	router.Post("/verify-code", handler.verifyCode)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout-all", handler.logoutAll)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
RequestCode issues a one-time sign-in code and emails it to the address.

POST /api/v1/auth/request-code

Description: Validates the email, enforces the per-email and per-origin
request windows plus the resend cooldown, then issues and delivers a code.

Request:
  - Body: requestCodeRequest (Email)

Response:
  - 200: RequestCodeResult: Code lifetime and resend cooldown
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 429: OTP_COOLDOWN_ACTIVE / RATE_LIMIT_EXCEEDED
  - 502: EMAIL_SEND_FAILED: Delivery collaborator failed
*/
func (handler *Handler) requestCode(writer http.ResponseWriter, request *http.Request) {
	var input requestCodeRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, 254)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.RequestCode(request.Context(), input.Email, getClientIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
VerifyCode checks a submitted code and logs the user in.

POST /api/v1/auth/verify-code

Description: Enforces the verification-attempt windows, verifies the code,
resolves the user (creating one on first sight), and returns a token pair.

Request:
  - Body: verifyCodeRequest (Email, Code)

Response:
  - 200: LoginSession: User profile and access/refresh pair
  - 400: OTP_INVALID / OTP_EXPIRED / validation failure
  - 404: OTP_NOT_FOUND: No code pending for this email
  - 429: OTP_MAX_ATTEMPTS_EXCEEDED / RATE_LIMIT_EXCEEDED
*/
func (handler *Handler) verifyCode(writer http.ResponseWriter, request *http.Request) {
	var input verifyCodeRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldCode, input.Code).
		Digits(FieldCode, input.Code, handler.authService.CodeLength())

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.VerifyCode(request.Context(), input.Email, input.Code, getClientIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Refresh exchanges a refresh token for a new access/refresh pair.

POST /api/v1/auth/refresh

Description: Verifies the token's signature and stored state, revokes it, and
issues a replacement pair in the same step. A replayed or revoked token
always fails.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: TokenPair: New credentials
  - 401: TOKEN_INVALID / TOKEN_EXPIRED
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "is required"))
		return
	}

	pair, err := handler.authService.RefreshSession(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Logout revokes the supplied refresh token.

POST /api/v1/auth/logout

Description: Best-effort session termination. A missing body, missing token,
or unknown token still succeeds so clients can always log out locally.

Response:
  - 204: No Content: Session terminated (or nothing to terminate)
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input logoutRequest

	// Decode failures are deliberately ignored: logout without a usable
	// token is a no-op success.
	_ = requestutil.DecodeJSON(request, &input)

	if err := handler.authService.Logout(request.Context(), input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
LogoutAll revokes every live refresh token of the authenticated user.

POST /api/v1/auth/logout-all

Response:
  - 204: No Content: All sessions terminated
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Me returns the authenticated user's profile.

GET /api/v1/auth/me

Response:
  - 200: User: Profile of the token's subject
  - 401: ErrUnauthorized: Authentication required
  - 404: USER_NOT_FOUND: Subject no longer resolves to a user
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Profile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldUser: user})
}

// getClientIP tries to extract the real IP address of a caller over proxy environments.
func getClientIP(request *http.Request) string {
	ip := request.Header.Get("X-Real-IP")
	if ip == "" {
		ip = request.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
