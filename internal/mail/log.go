// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package mail

import (
	"context"
	"log/slog"
)

// LogSender is a [Sender] that logs messages instead of delivering them.
//
// # Security
//
// The Info line carries subject and recipient only. The body, which contains
// the plaintext one-time code, is emitted on a separate Debug line so local
// sign-in stays possible without SMTP while production-level logging never
// sees a code. Used in development when no SMTP host is configured.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender constructs a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{log: logger}
}

// Send implements [Sender].
func (sender *LogSender) Send(ctx context.Context, to, subject, body string) error {
	sender.log.InfoContext(ctx, "email_logged_not_delivered",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	sender.log.DebugContext(ctx, "email_body",
		slog.String("to", to),
		slog.String("body", body),
	)
	return nil
}
