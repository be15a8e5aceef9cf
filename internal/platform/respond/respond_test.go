// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package respond

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/apperr"
)

/*
TestError_RetryAfterHeader sets the Retry-After header on throttled responses
carrying a retry hint, and leaves it off everything else.
*/
func TestError_RetryAfterHeader(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/request-code", nil)

	recorder := httptest.NewRecorder()
	Error(recorder, request, apperr.RateLimited(42))
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "42", recorder.Header().Get("Retry-After"))

	recorder = httptest.NewRecorder()
	Error(recorder, request, apperr.Unauthorized("Invalid token."))
	assert.Empty(t, recorder.Header().Get("Retry-After"))
}
