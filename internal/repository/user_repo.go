package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"racoonsmeal/internal/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, date_of_birth, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash,
		&a.FirstName, &a.LastName, &a.DateOfBirth, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find user by id: %w", err)
	}
	return a, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, strings.TrimSpace(username)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find user by username: %w", err)
	}
	return a, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`,
		strings.TrimSpace(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, a model.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.DateOfBirth, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
