package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded goose migrations to the database at dsn.
// goose works on database/sql, so it connects through lib/pq rather than the pgx pool.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrationsFS)
	if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
		goose.SetLogger(goose.NopLogger())
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if logger != nil {
		version, err := goose.GetDBVersionContext(ctx, sqlDB)
		if err == nil {
			logger.Info("database migrated", slog.Int64("version", version))
		}
	}

	return nil
}
