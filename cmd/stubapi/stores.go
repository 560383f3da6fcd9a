package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/pixora/internal/background"
	"github.com/BradenHooton/pixora/internal/config"
	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/repositories"
	"github.com/BradenHooton/pixora/internal/services"
)

type verificationStore interface {
	services.EmailVerificationRepository
	background.PendingVerificationPurger
}

type revocationStore interface {
	services.TokenRevocationRepository
	background.RevokedTokenPurger
}

// stores is the backend state selected by STUB_STORAGE_BACKEND
type stores struct {
	users         services.UserRepository
	verifications verificationStore
	revocations   revocationStore
	conversations services.ConversationRepository
	close         func()
}

func openStores(ctx context.Context, cfg *config.StubConfig, logger *slog.Logger) (*stores, error) {
	if cfg.StorageBackend != config.StoragePostgres {
		logger.Info("using in-memory storage, state is lost on restart")
		return &stores{
			users:         repositories.NewUserRepository(),
			verifications: repositories.NewEmailVerificationRepository(),
			revocations:   repositories.NewTokenRevocationRepository(),
			conversations: repositories.NewConversationRepository(),
			close:         func() {},
		}, nil
	}

	if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("using postgres storage", slog.String("database", cfg.Database.Name))
	return &stores{
		users:         repositories.NewPostgresUserRepository(db),
		verifications: repositories.NewPostgresEmailVerificationRepository(db),
		revocations:   repositories.NewPostgresTokenRevocationRepository(db),
		conversations: repositories.NewPostgresConversationRepository(db),
		close:         db.Close,
	}, nil
}
