// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Airbotix-AI/airbotix-sub000/internal/platform/dberr"
)

// Postgres-backed stores for the durable half of the domain: user identities
// and refresh tokens. Sign-in codes live in Redis, not here.

// PostgresUserStore implements [UserStore] on the auth.account table.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a Postgres-backed user store.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

const userColumns = `id, email, created_at, last_login_at`

func (store *PostgresUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM auth.account WHERE id = $1`
	return store.scanUser(store.pool.QueryRow(ctx, query, id))
}

func (store *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM auth.account WHERE email = $1`
	return store.scanUser(store.pool.QueryRow(ctx, query, email))
}

func (store *PostgresUserStore) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO auth.account (id, email, created_at)
		VALUES ($1, $2, $3)`
	if _, err := store.pool.Exec(ctx, query, user.ID, user.Email, user.CreatedAt); err != nil {
		return dberr.Wrap(err, "User")
	}
	return nil
}

func (store *PostgresUserStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE auth.account SET last_login_at = $2 WHERE id = $1`
	tag, err := store.pool.Exec(ctx, query, id, at)
	if err != nil {
		return dberr.Wrap(err, "User")
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "User")
	}
	return nil
}

func (store *PostgresUserStore) scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}
	return &user, nil
}

// PostgresRefreshTokenStore implements [RefreshTokenStore] on the
// auth.refresh_token table. Rotate runs revoke+insert in one transaction.
type PostgresRefreshTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenStore creates a Postgres-backed refresh token store.
func NewPostgresRefreshTokenStore(pool *pgxpool.Pool) *PostgresRefreshTokenStore {
	return &PostgresRefreshTokenStore{pool: pool}
}

const refreshTokenInsert = `
	INSERT INTO auth.refresh_token (id, user_id, token_hash, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5)`

func (store *PostgresRefreshTokenStore) Create(ctx context.Context, token *RefreshToken) error {
	_, err := store.pool.Exec(ctx, refreshTokenInsert,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}
	return nil
}

func (store *PostgresRefreshTokenStore) FindByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, is_revoked, created_at
		FROM auth.refresh_token
		WHERE token_hash = $1`

	var token RefreshToken
	err := store.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.ExpiresAt, &token.IsRevoked, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "RefreshToken")
	}
	return &token, nil
}

func (store *PostgresRefreshTokenStore) Revoke(ctx context.Context, id string) error {
	query := `UPDATE auth.refresh_token SET is_revoked = TRUE WHERE id = $1`
	if _, err := store.pool.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}
	return nil
}

func (store *PostgresRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `
		UPDATE auth.refresh_token
		SET is_revoked = TRUE
		WHERE user_id = $1 AND is_revoked = FALSE`
	if _, err := store.pool.Exec(ctx, query, userID); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}
	return nil
}

func (store *PostgresRefreshTokenStore) Rotate(ctx context.Context, revokeID string, replacement *RefreshToken) error {
	tx, err := store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("refresh_token_rotate_begin_failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // No-op after commit.

	revoke := `UPDATE auth.refresh_token SET is_revoked = TRUE WHERE id = $1`
	if _, err := tx.Exec(ctx, revoke, revokeID); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}
	if _, err := tx.Exec(ctx, refreshTokenInsert,
		replacement.ID, replacement.UserID, replacement.TokenHash,
		replacement.ExpiresAt, replacement.CreatedAt); err != nil {
		return dberr.Wrap(err, "RefreshToken")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("refresh_token_rotate_commit_failed: %w", err)
	}
	return nil
}

func (store *PostgresRefreshTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth.refresh_token WHERE expires_at < NOW()`
	tag, err := store.pool.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Wrap(err, "RefreshToken")
	}
	return tag.RowsAffected(), nil
}
