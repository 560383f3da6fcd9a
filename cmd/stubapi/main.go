// Command stubapi serves a development stand-in for the Pixora backend
// with in-memory storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/background"
	"github.com/BradenHooton/pixora/internal/config"
	"github.com/BradenHooton/pixora/internal/handlers"
	"github.com/BradenHooton/pixora/internal/middleware"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/routes"
	"github.com/BradenHooton/pixora/internal/services"
	pkgauth "github.com/BradenHooton/pixora/pkg/auth"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadStub()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Env))

	// Initialize repositories
	openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStores(openCtx, cfg, logger)
	openCancel()
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	userRepo := st.users
	revokeRepo := st.revocations
	emailVerificationRepo := st.verifications
	conversationRepo := st.conversations

	cleanupManager := background.NewCleanupManager(emailVerificationRepo, revokeRepo, logger, cfg.CleanupInterval)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, auth.TokenExpiry{
		Access:       cfg.AccessTokenExpiry,
		Refresh:      cfg.RefreshTokenExpiry,
		Registration: cfg.TempTokenExpiry,
		Reset:        cfg.ResetTokenExpiry,
	})
	otpManager := auth.NewOTPManager("Pixora", cfg.OTPExpiry)
	hasher := pkgauth.NewHasher(cfg.BcryptCost)
	timingDelay := auth.TimingDelay{Base: cfg.SignInMinDuration, Jitter: cfg.SignInMinDuration / 4}
	auditLogger := pkglogger.NewAuditLogger(logger)

	emailService, err := newEmailService(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, revokeRepo, tokenManager, hasher, timingDelay, emailService, logger, auditLogger)
	emailVerificationService := services.NewEmailVerificationService(
		emailVerificationRepo,
		userRepo,
		revokeRepo,
		otpManager,
		tokenManager,
		hasher,
		emailService,
		logger,
		auditLogger,
	)
	conversationService := services.NewConversationService(conversationRepo, cfg.ImageBaseURL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureSeedUser(ctx, userRepo, hasher, logger); err != nil {
		logger.Error("failed to create seed user", slog.Any("error", err))
	}
	cancel()

	router := routes.NewRouter(routes.Config{
		Env:            cfg.Env,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRateLimit:  middleware.RateLimitConfig{RequestsPerMinute: cfg.AuthRateLimit},
	}, routes.Handlers{
		Auth:              handlers.NewAuthHandler(authService, cfg.OAuthCallbackURL, logger),
		EmailVerification: handlers.NewEmailVerificationHandler(emailVerificationService, logger),
		Conversations:     handlers.NewConversationHandler(conversationService, logger),
	}, tokenManager, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting stub backend", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newEmailService delivers through SES when AWS_REGION is set and logs otherwise
func newEmailService(cfg *config.StubConfig, logger *slog.Logger) (services.EmailService, error) {
	if cfg.Email.AWSRegion == "" {
		logger.Info("AWS_REGION not set, emails will be written to the log")
		return services.NewLogEmailService(logger, cfg.Email.ResetURLBase, cfg.LogOTP), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ses, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.ResetURLBase, logger)
	if err != nil {
		return nil, err
	}
	return ses, nil
}

// ensureSeedUser creates a password account if SEED_EMAIL and SEED_PASSWORD are set
func ensureSeedUser(ctx context.Context, userRepo services.UserRepository, hasher pkgauth.Hasher, logger *slog.Logger) error {
	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")

	if email == "" || password == "" {
		logger.Debug("no SEED_EMAIL or SEED_PASSWORD set, skipping seed user")
		return nil
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("SEED_PASSWORD rejected: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	username := os.Getenv("SEED_USERNAME")
	if username == "" {
		username = "Pixora Tester"
	}

	account, err := userRepo.Create(ctx, &models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Provider:     models.ProviderEmail,
	})
	if errors.Is(err, models.ErrConflict) {
		logger.Debug("seed user already exists", slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	logger.Info("seed user created", slog.String("user_id", account.ID), slog.String("email", pkglogger.SanitizedEmail(account.Email)))
	return nil
}
