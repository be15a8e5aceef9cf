// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

// Package mailaddr normalizes and validates email addresses.
//
// # Why normalize?
//
// The same mailbox must always map to the same identity, the same one-time
// code record, and the same rate-limit key. "Ada@Example.COM " and
// "ada@example.com" are one user, so every email entering the auth core is
// passed through [Normalize] exactly once at the boundary.
package mailaddr

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
)

// folder lower-cases with full Unicode case folding, not just ASCII mapping.
// Internationalized addresses (EAI, RFC 6531) fold consistently this way.
var folder = cases.Fold()

// Normalize trims surrounding whitespace and case-folds the address.
//
// # Transformation Pipeline
//
// 1. Trim leading/trailing whitespace.
// 2. Unicode case-fold (é, İ, ß and friends fold deterministically).
func Normalize(address string) string {
	return folder.String(strings.TrimSpace(address))
}

// IsValid reports whether the address parses as a single RFC 5322 mailbox.
func IsValid(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}
