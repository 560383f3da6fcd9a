// Package repositories holds the stub backend's state. Each store comes in
// two flavours with the same method set: an in-memory one that is lost on
// restart and hands out copies, and a Postgres one built on the shared pool.
package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/google/uuid"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
	}
}

// Create stores a new account, assigning an ID when none is set.
// Returns models.ErrConflict if the email is already registered.
func (r *UserRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[a.Email]; taken {
		return nil, fmt.Errorf("email %w", models.ErrConflict)
	}
	if _, taken := r.byID[a.ID]; taken {
		return nil, fmt.Errorf("id %w", models.ErrConflict)
	}

	r.byID[a.ID] = &a
	r.byEmail[a.Email] = a.ID

	out := a
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

// UpdatePassword replaces the stored bcrypt hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = time.Now().UTC()
	return nil
}
