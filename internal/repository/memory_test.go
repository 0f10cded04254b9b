package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racoonsmeal/internal/model"
)

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()

	require.NoError(t, repo.Create(ctx, model.Account{ID: "u1", Username: "Chef1"}))
	require.ErrorIs(t, repo.Create(ctx, model.Account{ID: "u2", Username: "chef1"}), model.ErrUserAlreadyExists)

	found, err := repo.FindByUsername(ctx, " CHEF1 ")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	exists, err := repo.ExistsByUsername(ctx, "chef1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByID(ctx, "missing")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryTokenRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryTokenRepository()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Store(ctx, "t1", "u1", now.Add(time.Hour)))
	require.NoError(t, repo.Store(ctx, "t2", "u1", now.Add(-time.Minute)))
	require.NoError(t, repo.Store(ctx, "t3", "u2", now.Add(time.Hour)))

	userID, err := repo.Validate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = repo.Validate(ctx, "t2")
	require.ErrorIs(t, err, model.ErrTokenNotFound)

	removed, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	require.NoError(t, repo.RevokeAllForUser(ctx, "u1"))
	_, err = repo.Validate(ctx, "t1")
	require.ErrorIs(t, err, model.ErrTokenNotFound)

	require.NoError(t, repo.Revoke(ctx, "t3"))
	_, err = repo.Validate(ctx, "t3")
	require.ErrorIs(t, err, model.ErrTokenNotFound)
}

func TestMemoryProfileRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryProfileRepository()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.ErrorIs(t, repo.Update(ctx, model.Profile{UserID: "u1"}), model.ErrProfileNotFound)

	require.NoError(t, repo.Create(ctx, model.Profile{ID: "p1", UserID: "u1", CreatedAt: created}))
	require.ErrorIs(t, repo.Create(ctx, model.Profile{ID: "p2", UserID: "u1"}), model.ErrProfileAlreadyExists)

	require.NoError(t, repo.Update(ctx, model.Profile{UserID: "u1", Age: 30, Goal: model.GoalCut}))

	p, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.True(t, p.IsComplete())
}
