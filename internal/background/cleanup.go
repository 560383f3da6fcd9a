// Package background runs the stub backend's periodic housekeeping.
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PendingVerificationPurger drops OTP verifications past their expiry
type PendingVerificationPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RevokedTokenPurger drops spent token IDs once the token itself has expired
type RevokedTokenPurger interface {
	CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type sweep struct {
	name string
	run  func(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically purges expired verifications and revoked tokens
type CleanupManager struct {
	sweeps   []sweep
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	verifications PendingVerificationPurger,
	revocations RevokedTokenPurger,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sweeps: []sweep{
			{name: "pending_verifications", run: verifications.DeleteExpired},
			{name: "revoked_tokens", run: revocations.CleanupExpiredTokens},
		},
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every interval until Stop or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single pass over every sweep. A failing sweep is logged
// and does not prevent the others from running.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()
	for _, s := range cm.sweeps {
		removed, err := s.run(cleanupCtx, now)
		if err != nil {
			cm.logger.Error("cleanup sweep failed", slog.String("sweep", s.name), slog.Any("error", err))
			continue
		}
		if removed > 0 {
			cm.logger.Info("cleanup sweep completed", slog.String("sweep", s.name), slog.Int64("rows_deleted", removed))
		}
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
