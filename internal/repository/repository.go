package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"racoonsmeal/internal/model"
)

// UserStore persists accounts. Usernames are unique case-insensitively.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.Account, error)
	FindByUsername(ctx context.Context, username string) (model.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, account model.Account) error
	Count(ctx context.Context) (int, error)
}

// TokenStore is the allowlist of issued refresh tokens, keyed by token ID.
type TokenStore interface {
	Store(ctx context.Context, tokenID string, userID string, expiresAt time.Time) error
	Validate(ctx context.Context, tokenID string) (string, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	CleanExpired(ctx context.Context) (int64, error)
}

// ProfileStore persists one profile per user.
type ProfileStore interface {
	FindByUserID(ctx context.Context, userID string) (model.Profile, error)
	Create(ctx context.Context, profile model.Profile) error
	Update(ctx context.Context, profile model.Profile) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
