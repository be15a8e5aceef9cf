// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestLogSender_Send keeps the body off the Info line and surfaces it on a
Debug line, so the logged code is readable in development only.
*/
func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sender := NewLogSender(logger)

	err := sender.Send(context.Background(), "a@x.com", "Your sign-in code", "code 123456")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "email_logged_not_delivered")
	assert.NotContains(t, lines[0], "123456")
	assert.Contains(t, lines[1], "DEBUG")
	assert.Contains(t, lines[1], "123456")
}

/*
TestLogSender_InfoLevelHidesBody confirms the default production log level
never emits the code at all.
*/
func TestLogSender_InfoLevelHidesBody(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sender := NewLogSender(logger)

	require.NoError(t, sender.Send(context.Background(), "a@x.com", "Your sign-in code", "code 123456"))
	assert.NotContains(t, buf.String(), "123456")
}
