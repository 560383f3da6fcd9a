package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/models"
)

// Postgres is a Store backed by the client_storage table. Each namespace
// is an isolated key space, so several CLI profiles can share a database.
type Postgres struct {
	db        *database.DB
	namespace string
}

func NewPostgres(db *database.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM client_storage WHERE namespace = $1 AND key = $2`

	var value string
	err := p.db.Pool.QueryRow(ctx, query, p.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(database.Classify(err), models.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := p.db.Pool.Exec(ctx, query, p.namespace, key, value); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, database.Classify(err))
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM client_storage WHERE namespace = $1 AND key = $2`

	if _, err := p.db.Pool.Exec(ctx, query, p.namespace, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}
