package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"racoonsmeal/internal/model"
)

const (
	insertRefreshTokenSQL = `INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`
	selectRefreshTokenOwnerSQL = `SELECT user_id FROM refresh_tokens
		WHERE token = $1 AND expires_at > now()`
	deleteRefreshTokenSQL        = `DELETE FROM refresh_tokens WHERE token = $1`
	deleteUserRefreshTokensSQL   = `DELETE FROM refresh_tokens WHERE user_id = $1`
	deleteExpiredRefreshTokenSQL = `DELETE FROM refresh_tokens WHERE expires_at <= now()`
)

// TokenRepository keeps the jti of every issued refresh token. A refresh token is
// honoured only while its row exists and has not expired.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Store(ctx context.Context, tokenID string, userID string, expiresAt time.Time) error {
	return r.exec(ctx, "store refresh token", insertRefreshTokenSQL, tokenID, userID, time.Now().UTC(), expiresAt.UTC())
}

// Validate returns the owner of a live token, or model.ErrTokenNotFound.
func (r *TokenRepository) Validate(ctx context.Context, tokenID string) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, selectRefreshTokenOwnerSQL, tokenID).Scan(&userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", model.ErrTokenNotFound
	case err != nil:
		return "", fmt.Errorf("validate refresh token: %w", err)
	}
	return userID, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, tokenID string) error {
	return r.exec(ctx, "revoke refresh token", deleteRefreshTokenSQL, tokenID)
}

// RevokeAllForUser signs a user out of every client holding one of their refresh tokens.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.exec(ctx, "revoke user refresh tokens", deleteUserRefreshTokensSQL, userID)
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredRefreshTokenSQL)
	if err != nil {
		return 0, fmt.Errorf("clean expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) exec(ctx context.Context, op string, sql string, args ...any) error {
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
