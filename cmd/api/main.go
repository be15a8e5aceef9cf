// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

// Command api is the entry point for the Airbotix auth HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the token service, stores, limiters, and mail sender.
//  7. Start the background sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Airbotix-AI/airbotix-sub000/internal/api"
	"github.com/Airbotix-AI/airbotix-sub000/internal/auth"
	"github.com/Airbotix-AI/airbotix-sub000/internal/mail"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/config"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/constants"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/migration"
	pgstore "github.com/Airbotix-AI/airbotix-sub000/internal/platform/postgres"
	redisstore "github.com/Airbotix-AI/airbotix-sub000/internal/platform/redis"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/sec"
	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/sweep"
	"github.com/Airbotix-AI/airbotix-sub000/internal/ratelimit"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Airbotix] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(
		cfg.TokenSecret,
		constants.AuthIssuer,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	must(log, err, "initialize token service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userStore := auth.NewPostgresUserStore(pool)
	refreshTokenStore := auth.NewPostgresRefreshTokenStore(pool)
	otpStore := auth.NewRedisOtpStore(rdb)

	otpManager := auth.NewOtpManager(otpStore, cfg.OtpCodeLength, cfg.OtpTTL, cfg.OtpMaxAttempts)

	limitStore := ratelimit.NewRedisStore(rdb)
	requestLimiter := ratelimit.NewLimiter(limitStore, cfg.RateLimitRequestMax, cfg.RateLimitRequestWindow)
	verifyLimiter := ratelimit.NewLimiter(limitStore, cfg.RateLimitVerifyMax, cfg.RateLimitVerifyWindow)

	// Production requires real delivery. Development falls back to logging
	// codes locally when SMTP is not configured.
	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else if cfg.IsDevelopment() {
		log.Warn("smtp not configured, sign-in codes will only be logged at debug level")
		sender = mail.NewLogSender(log)
	} else {
		must(log, errors.New("SMTP_HOST is required outside development"), "configure mail sender")
	}

	authService := auth.NewService(
		userStore,
		refreshTokenStore,
		otpManager,
		tokenService,
		sender,
		requestLimiter,
		verifyLimiter,
		cfg.OtpResendCooldown,
	)
	authHandler := auth.NewHandler(authService)

	// ── 9. Background Sweeper ─────────────────────────────────────────────
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	sweeper := sweep.NewRunner(cfg.SweepInterval, log,
		sweep.Task{Name: "expired_otp_records", Run: authService.SweepExpiredCodes},
		sweep.Task{Name: "expired_refresh_tokens", Run: authService.SweepExpiredTokens},
		sweep.Task{Name: "expired_rate_windows", Run: requestLimiter.SweepExpired},
	)
	go sweeper.Run(sweeperCtx)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	}

	server := api.NewServer(sweeperCtx, cfg, log, tokenService, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
