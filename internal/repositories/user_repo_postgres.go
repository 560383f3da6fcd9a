package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/models"
)

const accountColumns = `id, email, username, password_hash, provider, created_at, updated_at`

// PostgresUserRepository keeps accounts in the accounts table
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(db *database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Provider, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, database.Classify(err)
	}
	return &a, nil
}

// Create stores a new account, assigning an ID when none is set.
// Returns models.ErrConflict if the email is already registered.
func (r *PostgresUserRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	a := *account
	a.Email = models.NormalizeEmail(a.Email)
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	created, err := scanAccount(r.pool.QueryRow(ctx, query,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Provider, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

// UpdatePassword replaces the stored bcrypt hash
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return database.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
