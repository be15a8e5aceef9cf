// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/middleware"
)

// newTestRouter mounts the handler behind the Authenticate middleware, the
// same way the composition root does.
func newTestRouter(t *testing.T) (*testHarness, chi.Router) {
	t.Helper()
	harness := newTestHarness(t)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(harness.tokens))
	router.Mount("/auth", NewHandler(harness.service).Routes())
	return harness, router
}

func postJSON(router chi.Router, path, body string, header http.Header) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		request.Header[key] = values
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Data
}

/*
TestHandler_RequestCode_Validation rejects malformed bodies and addresses
before the service is invoked.
*/
func TestHandler_RequestCode_Validation(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"broken_json", `{"email":`, "VALIDATION_ERROR"},
		{"missing_email", `{}`, "VALIDATION_ERROR"},
		{"bad_address", `{"email":"not-an-address"}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := postJSON(router, "/auth/request-code", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Contains(t, recorder.Body.String(), tt.code)
		})
	}
}

/*
TestHandler_FullLoginFlow drives request-code → verify-code → me → logout
through the HTTP surface.
*/
func TestHandler_FullLoginFlow(t *testing.T) {
	harness, router := newTestRouter(t)

	// 1. Request a code.
	recorder := postJSON(router, "/auth/request-code", `{"email":"A@X.com"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	data := decodeData(t, recorder)
	assert.EqualValues(t, 10, data["expires_in_minutes"])
	assert.EqualValues(t, 60, data["cooldown_seconds"])

	// 2. Verify it (any spelling of the email lands on the same mailbox).
	code := harness.sender.lastCode(t)
	recorder = postJSON(router, "/auth/verify-code",
		`{"email":"a@x.com","code":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	data = decodeData(t, recorder)
	user := data["user"].(map[string]any)
	tokens := data["tokens"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotNil(t, user["last_login_at"])
	require.NotEmpty(t, tokens["access_token"])
	require.NotEmpty(t, tokens["refresh_token"])

	// 3. The access token opens the protected profile route.
	request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	request.Header.Set("Authorization", "Bearer "+tokens["access_token"].(string))
	meRecorder := httptest.NewRecorder()
	router.ServeHTTP(meRecorder, request)
	require.Equal(t, http.StatusOK, meRecorder.Code)
	meData := decodeData(t, meRecorder)
	assert.Equal(t, user["id"], meData["user"].(map[string]any)["id"])

	// 4. Logout, then the refresh token is dead.
	recorder = postJSON(router, "/auth/logout",
		`{"refresh_token":"`+tokens["refresh_token"].(string)+`"}`, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = postJSON(router, "/auth/refresh",
		`{"refresh_token":"`+tokens["refresh_token"].(string)+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "TOKEN_INVALID")
}

/*
TestHandler_VerifyCode_WrongCode maps the domain failure onto the wire.
*/
func TestHandler_VerifyCode_WrongCode(t *testing.T) {
	harness, router := newTestRouter(t)

	recorder := postJSON(router, "/auth/request-code", `{"email":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	wrong := "000000"
	if harness.sender.lastCode(t) == wrong {
		wrong = "111111"
	}

	recorder = postJSON(router, "/auth/verify-code",
		`{"email":"a@x.com","code":"`+wrong+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "OTP_INVALID")
}

/*
TestHandler_Refresh_RequiresToken rejects an empty refresh payload.
*/
func TestHandler_Refresh_RequiresToken(t *testing.T) {
	_, router := newTestRouter(t)

	recorder := postJSON(router, "/auth/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "VALIDATION_ERROR")
}

/*
TestHandler_Logout_WithoutBody stays a no-op success.
*/
func TestHandler_Logout_WithoutBody(t *testing.T) {
	_, router := newTestRouter(t)

	recorder := postJSON(router, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestHandler_Me_RequiresAuth blocks anonymous access to the profile route.
*/
func TestHandler_Me_RequiresAuth(t *testing.T) {
	_, router := newTestRouter(t)

	request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
