// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import "time"

// Fallback policy values, applied by the constructors when a caller passes a
// zero or negative setting. Deployed values come from configuration.
const (
	DefaultCodeLength     = 6
	DefaultCodeTTL        = 10 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultResendCooldown = 60 * time.Second
)

// Rate-limit key prefixes. Email and origin windows are tracked under
// separate keys so that either one breaching its ceiling rejects the request
// independently of the other.
const (
	rateKeyRequestEmail  = "request:email:"
	rateKeyRequestOrigin = "request:origin:"
	rateKeyVerifyEmail   = "verify:email:"
	rateKeyVerifyOrigin  = "verify:origin:"
)

// tokenTypeBearer is the token_type value reported alongside issued pairs.
const tokenTypeBearer = "Bearer"
