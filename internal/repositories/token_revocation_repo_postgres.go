package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/models"
)

// PostgresTokenRevocationRepository keeps spent JTIs in revoked_tokens
type PostgresTokenRevocationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenRevocationRepository(db *database.DB) *PostgresTokenRevocationRepository {
	return &PostgresTokenRevocationRepository{pool: db.Pool}
}

// RevokeToken marks jti as spent. A second call for the same jti returns
// models.ErrConflict; the primary key makes check-and-spend atomic.
func (r *PostgresTokenRevocationRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, jti, expiresAt)
	if err != nil {
		return database.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

func (r *PostgresTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, database.Classify(err)
	}
	return exists, nil
}

// CleanupExpiredTokens forgets entries whose token expired before now
func (r *PostgresTokenRevocationRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.Classify(err)
	}
	return tag.RowsAffected(), nil
}
