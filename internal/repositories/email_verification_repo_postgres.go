package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/models"
)

// PostgresEmailVerificationRepository keeps one pending OTP per address in
// the pending_verifications table
type PostgresEmailVerificationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEmailVerificationRepository(db *database.DB) *PostgresEmailVerificationRepository {
	return &PostgresEmailVerificationRepository{pool: db.Pool}
}

// Upsert replaces any earlier code for the same address
func (r *PostgresEmailVerificationRepository) Upsert(ctx context.Context, p *models.PendingVerification) error {
	query := `
		INSERT INTO pending_verifications (email, secret, issued_at, expires_at, attempts, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			secret = EXCLUDED.secret,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts,
			verified_at = EXCLUDED.verified_at
	`

	_, err := r.pool.Exec(ctx, query,
		models.NormalizeEmail(p.Email), p.Secret, p.IssuedAt, p.ExpiresAt, p.Attempts, p.VerifiedAt,
	)
	return database.Classify(err)
}

func (r *PostgresEmailVerificationRepository) Get(ctx context.Context, email string) (*models.PendingVerification, error) {
	query := `
		SELECT email, secret, issued_at, expires_at, attempts, verified_at
		FROM pending_verifications WHERE email = $1
	`

	var p models.PendingVerification
	err := r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)).Scan(
		&p.Email, &p.Secret, &p.IssuedAt, &p.ExpiresAt, &p.Attempts, &p.VerifiedAt,
	)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &p, nil
}

// IncrementAttempts records a failed redemption and returns the new count
func (r *PostgresEmailVerificationRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	query := `UPDATE pending_verifications SET attempts = attempts + 1 WHERE email = $1 RETURNING attempts`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)).Scan(&attempts); err != nil {
		return 0, database.Classify(err)
	}
	return attempts, nil
}

// MarkVerified flags the code as redeemed. It fails with models.ErrConflict
// when the code was already used so that only one caller wins.
func (r *PostgresEmailVerificationRepository) MarkVerified(ctx context.Context, email string, at time.Time) error {
	email = models.NormalizeEmail(email)
	query := `UPDATE pending_verifications SET verified_at = $2 WHERE email = $1 AND verified_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, email, at)
	if err != nil {
		return database.Classify(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pending_verifications WHERE email = $1)`, email).Scan(&exists); err != nil {
		return database.Classify(err)
	}
	if exists {
		return models.ErrConflict
	}
	return models.ErrNotFound
}

func (r *PostgresEmailVerificationRepository) Delete(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_verifications WHERE email = $1`, models.NormalizeEmail(email))
	return database.Classify(err)
}

// DeleteExpired drops codes that expired at or before now
func (r *PostgresEmailVerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_verifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, database.Classify(err)
	}
	return tag.RowsAffected(), nil
}
