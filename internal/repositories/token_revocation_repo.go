package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
)

// TokenRevocationRepository remembers the JTIs of single-use tokens
// (registration and password reset) until they would have expired anyway
type TokenRevocationRepository struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewTokenRevocationRepository() *TokenRevocationRepository {
	return &TokenRevocationRepository{used: make(map[string]time.Time)}
}

// RevokeToken marks jti as spent. A second call for the same jti returns
// models.ErrConflict, which makes check-and-spend atomic.
func (r *TokenRevocationRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.used[jti]; ok {
		return models.ErrConflict
	}
	r.used[jti] = expiresAt
	return nil
}

func (r *TokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.used[jti]
	return ok, nil
}

// CleanupExpiredTokens forgets entries whose token expired before now
func (r *TokenRevocationRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for jti, exp := range r.used {
		if exp.Before(now) {
			delete(r.used, jti)
			n++
		}
	}
	return n, nil
}
