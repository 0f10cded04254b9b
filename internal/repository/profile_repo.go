package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"racoonsmeal/internal/model"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, bio, age, gender, height_cm, weight_kg, activity_level, goal,
		        profile_picture, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.Bio, &p.Age, &p.Gender, &p.HeightCM, &p.WeightKG,
			&p.ActivityLevel, &p.Goal, &p.ProfilePicture, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Create inserts a profile, reporting ErrProfileAlreadyExists when the user has one.
func (r *ProfileRepository) Create(ctx context.Context, p model.Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, user_id, bio, age, gender, height_cm, weight_kg, activity_level,
		                       goal, profile_picture, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.Bio, p.Age, p.Gender, p.HeightCM, p.WeightKG, p.ActivityLevel,
		p.Goal, p.ProfilePicture, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrProfileAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, p model.Profile) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles
		 SET bio = $2, age = $3, gender = $4, height_cm = $5, weight_kg = $6,
		     activity_level = $7, goal = $8, profile_picture = $9, updated_at = $10
		 WHERE user_id = $1`,
		p.UserID, p.Bio, p.Age, p.Gender, p.HeightCM, p.WeightKG,
		p.ActivityLevel, p.Goal, p.ProfilePicture, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProfileNotFound
	}
	return nil
}
