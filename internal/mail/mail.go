// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

/*
Package mail provides the outbound email capability consumed by the auth core.

The core depends only on the [Sender] interface ("send an email"); provider
selection happens once at process wiring time. Two implementations ship:

  - SMTPSender: real delivery over SMTP with STARTTLS and optional PLAIN auth.
  - LogSender: development/test sender that logs instead of delivering.

Templates, providers, and delivery retries are deliberately out of the core;
a failed send surfaces as EMAIL_SEND_FAILED and the caller may retry the flow.
*/
package mail

import (
	"context"
	"fmt"
	"time"
)

// Sender is the single capability the auth core needs from email infrastructure.
type Sender interface {
	// Send delivers one message. A non-nil error means the message was not
	// accepted by the provider; partial delivery is treated as failure.
	Send(ctx context.Context, to, subject, body string) error
}

// OtpMessage renders the one-time code email.
//
// The plaintext code exists only in this message and in the HTTP-free memory
// of the issuing flow. It is never persisted.
func OtpMessage(code string, timeToLive time.Duration) (subject, body string) {
	minutes := int(timeToLive.Minutes())

	subject = "Your Airbotix sign-in code"
	body = fmt.Sprintf(
		"<h2>Sign in to Airbotix</h2>"+
			"<p>Your one-time code: <b>%s</b></p>"+
			"<p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>",
		code, minutes,
	)
	return subject, body
}
