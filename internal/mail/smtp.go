// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// dialTimeout bounds the TCP connect to the SMTP server. The caller's
// context deadline still applies on top of this.
const dialTimeout = 5 * time.Second

// SMTPSender delivers messages over SMTP.
//
// It speaks STARTTLS when the server offers it and authenticates with PLAIN
// when credentials are configured, which covers both local catchers
// (MailHog) and real providers.
type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string

	// InsecureSkipVerify disables TLS certificate verification.
	// Only acceptable for local development mail catchers.
	InsecureSkipVerify bool
}

// NewSMTPSender constructs an [SMTPSender].
func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
	}
}

// Send implements [Sender]. It performs one complete SMTP transaction:
// dial, EHLO, optional STARTTLS, optional AUTH, MAIL/RCPT/DATA.
func (sender *SMTPSender) Send(ctx context.Context, to, subject, body string) error {

	// ── 1. Message Assembly ───────────────────────────────────────────────
	headers := []string{
		"From: " + sender.from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var message strings.Builder
	message.WriteString(strings.Join(headers, "\r\n"))
	message.WriteString("\r\n\r\n")
	message.WriteString(body)

	// ── 2. Connection ─────────────────────────────────────────────────────
	dialer := &net.Dialer{Timeout: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	address := net.JoinHostPort(sender.host, strconv.Itoa(sender.port))
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("mail: smtp dial failed: %w", err)
	}
	defer connection.Close()

	client, err := smtp.NewClient(connection, sender.host)
	if err != nil {
		return fmt.Errorf("mail: smtp handshake failed: %w", err)
	}
	defer func() { _ = client.Quit() }()

	// ── 3. STARTTLS (when offered) ────────────────────────────────────────
	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName:         sender.host,
			InsecureSkipVerify: sender.InsecureSkipVerify,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("mail: starttls failed: %w", err)
		}
	}

	// ── 4. Authentication (when configured and offered) ───────────────────
	if sender.user != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", sender.user, sender.pass, sender.host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("mail: smtp auth failed: %w", err)
			}
		}
	}

	// ── 5. Transaction ────────────────────────────────────────────────────
	if err := client.Mail(sender.from); err != nil {
		return fmt.Errorf("mail: MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mail: RCPT TO rejected: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA rejected: %w", err)
	}
	if _, err := writer.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("mail: message write failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("mail: message finalize failed: %w", err)
	}

	return nil
}
