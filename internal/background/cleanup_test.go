package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type purgerFunc func(ctx context.Context, now time.Time) (int64, error)

func (f purgerFunc) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func (f purgerFunc) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return f(ctx, now)
}

func TestRunOnce_PurgesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	verifications := repositories.NewEmailVerificationRepository()
	require.NoError(t, verifications.Upsert(ctx, &models.PendingVerification{
		Email: "old@example.com", Secret: "s1", IssuedAt: now.Add(-20 * time.Minute), ExpiresAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, verifications.Upsert(ctx, &models.PendingVerification{
		Email: "fresh@example.com", Secret: "s2", IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	revocations := repositories.NewTokenRevocationRepository()
	require.NoError(t, revocations.RevokeToken(ctx, "expired-jti", now.Add(-time.Minute)))
	require.NoError(t, revocations.RevokeToken(ctx, "live-jti", now.Add(time.Hour)))

	cm := NewCleanupManager(verifications, revocations, discardLogger(), time.Hour)
	cm.now = func() time.Time { return now }
	cm.RunOnce(ctx)

	_, err := verifications.Get(ctx, "old@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = verifications.Get(ctx, "fresh@example.com")
	assert.NoError(t, err)

	revoked, err := revocations.IsTokenRevoked(ctx, "expired-jti")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = revocations.IsTokenRevoked(ctx, "live-jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRunOnce_FailingSweepDoesNotStopOthers(t *testing.T) {
	var tokenSweeps atomic.Int32
	failing := purgerFunc(func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("boom")
	})
	counting := purgerFunc(func(context.Context, time.Time) (int64, error) {
		tokenSweeps.Add(1)
		return 3, nil
	})

	cm := NewCleanupManager(failing, counting, discardLogger(), time.Hour)
	cm.RunOnce(context.Background())

	assert.Equal(t, int32(1), tokenSweeps.Load())
}

func TestStart_SweepsImmediatelyAndStops(t *testing.T) {
	var sweeps atomic.Int32
	counting := purgerFunc(func(context.Context, time.Time) (int64, error) {
		sweeps.Add(1)
		return 0, nil
	})

	cm := NewCleanupManager(counting, counting, discardLogger(), time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeps.Load() == 2 }, time.Second, 5*time.Millisecond)

	cm.Stop()
	cm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	noop := purgerFunc(func(context.Context, time.Time) (int64, error) { return 0, nil })
	cm := NewCleanupManager(noop, noop, discardLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager ignored context cancellation")
	}
}
