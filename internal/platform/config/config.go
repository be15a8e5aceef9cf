// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Auth) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Airbotix auth API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis) — one-time codes and rate-limit counters
	RedisURL string `env:"REDIS_URL,required"`

	// TokenSecret is the HMAC key used to sign access and refresh tokens.
	TokenSecret string `env:"AUTH_TOKEN_SECRET,required"`

	// Token lifetimes. Access tokens are short-lived, self-verifying
	// credentials; refresh tokens are long-lived and revocable.
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// One-time code lifecycle
	OtpCodeLength     int           `env:"OTP_CODE_LENGTH"      envDefault:"6"`
	OtpTTL            time.Duration `env:"OTP_TTL"              envDefault:"10m"`
	OtpMaxAttempts    int           `env:"OTP_MAX_ATTEMPTS"     envDefault:"5"`
	OtpResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN"  envDefault:"60s"`

	// Fixed-window abuse limits (per key class)
	RateLimitRequestMax    int64         `env:"RATE_LIMIT_REQUEST_MAX"    envDefault:"5"`
	RateLimitRequestWindow time.Duration `env:"RATE_LIMIT_REQUEST_WINDOW" envDefault:"1h"`
	RateLimitVerifyMax     int64         `env:"RATE_LIMIT_VERIFY_MAX"     envDefault:"20"`
	RateLimitVerifyWindow  time.Duration `env:"RATE_LIMIT_VERIFY_WINDOW"  envDefault:"1h"`

	// SweepInterval is how often the background janitor reclaims expired
	// one-time code, rate-limit, and refresh-token records.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Outbound email (SMTP). When SMTP_HOST is empty the process falls back
	// to a log-only sender, which is only acceptable outside production.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"no-reply@airbotix.ai"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
