package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailVerificationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailVerificationRepository()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &models.PendingVerification{
		Email: "New@Example.com", Secret: "S1", IssuedAt: now, ExpiresAt: now.Add(time.Minute),
	}))

	p, err := repo.Get(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "S1", p.Secret)

	n, err := repo.IncrementAttempts(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.MarkVerified(ctx, "new@example.com", now))
	assert.ErrorIs(t, repo.MarkVerified(ctx, "new@example.com", now), models.ErrConflict)

	require.NoError(t, repo.Delete(ctx, "new@example.com"))
	_, err = repo.Get(ctx, "new@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEmailVerificationRepository_UpsertResets(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailVerificationRepository()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &models.PendingVerification{Email: "a@b.co", Secret: "S1", ExpiresAt: now.Add(time.Minute)}))
	_, err := repo.IncrementAttempts(ctx, "a@b.co")
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, &models.PendingVerification{Email: "a@b.co", Secret: "S2", ExpiresAt: now.Add(time.Minute)}))
	p, err := repo.Get(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "S2", p.Secret)
	assert.Zero(t, p.Attempts)
}

func TestEmailVerificationRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailVerificationRepository()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, &models.PendingVerification{Email: "old@b.co", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, repo.Upsert(ctx, &models.PendingVerification{Email: "fresh@b.co", ExpiresAt: now.Add(time.Minute)}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "fresh@b.co")
	assert.NoError(t, err)
}
