package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BradenHooton/pixora/internal/models"
)

// SQLSTATE codes the store distinguishes
const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
)

// Classify wraps driver errors with the matching models sentinel so callers
// can test with errors.Is without importing pgx. Other errors pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", models.ErrConflict, err)
	case codeNotNullViolation:
		return fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}
	return err
}
