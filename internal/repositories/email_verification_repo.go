package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
)

// EmailVerificationRepository tracks one pending OTP per email address
type EmailVerificationRepository struct {
	mu      sync.Mutex
	pending map[string]*models.PendingVerification
}

func NewEmailVerificationRepository() *EmailVerificationRepository {
	return &EmailVerificationRepository{pending: make(map[string]*models.PendingVerification)}
}

// Upsert replaces any earlier code for the same address
func (r *EmailVerificationRepository) Upsert(ctx context.Context, p *models.PendingVerification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v := *p
	v.Email = models.NormalizeEmail(v.Email)

	r.mu.Lock()
	r.pending[v.Email] = &v
	r.mu.Unlock()
	return nil
}

func (r *EmailVerificationRepository) Get(ctx context.Context, email string) (*models.PendingVerification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[models.NormalizeEmail(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *p
	return &out, nil
}

// IncrementAttempts records a failed redemption and returns the new count
func (r *EmailVerificationRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[models.NormalizeEmail(email)]
	if !ok {
		return 0, models.ErrNotFound
	}
	p.Attempts++
	return p.Attempts, nil
}

// MarkVerified flags the code as redeemed. It fails with models.ErrConflict
// when the code was already used so that only one caller wins.
func (r *EmailVerificationRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[models.NormalizeEmail(email)]
	if !ok {
		return models.ErrNotFound
	}
	if p.VerifiedAt != nil {
		return models.ErrConflict
	}
	p.VerifiedAt = &at
	return nil
}

func (r *EmailVerificationRepository) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.pending, models.NormalizeEmail(email))
	r.mu.Unlock()
	return nil
}

// DeleteExpired drops unredeemed codes that expired before now
func (r *EmailVerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for email, p := range r.pending {
		if p.IsExpired(now) {
			delete(r.pending, email)
			n++
		}
	}
	return n, nil
}
