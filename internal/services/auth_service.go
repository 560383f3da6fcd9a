package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
	pkgauth "github.com/BradenHooton/pixora/pkg/auth"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

// ForgotPasswordMessage is returned whether or not the address is registered
const ForgotPasswordMessage = "If an account exists for that email, a password reset link has been sent."

// Demo account used by the Google sign-in stand-in
const (
	DemoOAuthEmail    = "demo@pixora.dev"
	DemoOAuthUsername = "Pixora Demo"
)

// UserRepository defines the account operations the services need
type UserRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenRevocationRepository spends single-use tokens
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthService struct {
	userRepo     UserRepository
	revokeRepo   TokenRevocationRepository
	tokenManager *auth.TokenManager
	hasher       pkgauth.Hasher
	timingDelay  auth.TimingDelay
	emailService EmailService
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger

	// compared against when the account has no usable hash so that unknown
	// emails cost the same bcrypt work as wrong passwords
	dummyHash func() string
}

func NewAuthService(
	userRepo UserRepository,
	revokeRepo TokenRevocationRepository,
	tokenManager *auth.TokenManager,
	hasher pkgauth.Hasher,
	timingDelay auth.TimingDelay,
	emailService EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	s := &AuthService{
		userRepo:     userRepo,
		revokeRepo:   revokeRepo,
		tokenManager: tokenManager,
		hasher:       hasher,
		timingDelay:  timingDelay,
		emailService: emailService,
		logger:       logger,
		auditLogger:  auditLogger,
	}
	s.dummyHash = sync.OnceValue(func() string {
		hash, _ := hasher.Hash("pixora-timing-equalizer")
		return hash
	})
	return s
}

// SignIn checks the credentials and issues a token pair. Every failure is
// models.ErrInvalidCredentials and takes at least the timing delay.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (models.TokenPair, *models.Account, error) {
	start := time.Now()
	defer s.timingDelay.WaitFrom(ctx, start)

	account, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return models.TokenPair{}, nil, fmt.Errorf("failed to look up account: %w", err)
		}
		_ = pkgauth.ComparePassword(s.dummyHash(), password)
		s.auditFailure(ctx, pkglogger.EventSignIn, email, "unknown_email")
		return models.TokenPair{}, nil, models.ErrInvalidCredentials
	}

	// accounts created through Google have no password
	if account.PasswordHash == "" {
		_ = pkgauth.ComparePassword(s.dummyHash(), password)
		s.auditFailure(ctx, pkglogger.EventSignIn, email, "no_password")
		return models.TokenPair{}, nil, models.ErrInvalidCredentials
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.auditFailure(ctx, pkglogger.EventSignIn, email, "wrong_password")
		return models.TokenPair{}, nil, models.ErrInvalidCredentials
	}

	pair, err := s.tokenManager.GenerateTokenPair(account.ID, account.Email)
	if err != nil {
		return models.TokenPair{}, nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSignIn,
		Email:     account.Email,
		UserID:    account.ID,
		Success:   true,
	})
	return pair, account, nil
}

// ForgotPassword mails a reset link when the address belongs to a password
// account. It never reports whether the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditFailure(ctx, pkglogger.EventForgotPassword, email, "unknown_email")
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if account.PasswordHash == "" {
		s.auditFailure(ctx, pkglogger.EventForgotPassword, email, "no_password")
		return nil
	}

	token, claims, err := s.tokenManager.Generate(auth.TokenReset, account.ID, account.Email)
	if err != nil {
		return err
	}

	if err := s.emailService.SendPasswordReset(ctx, account.Email, token, claims.ExpiresAt.Time); err != nil {
		// the caller still gets the generic confirmation
		s.logger.Error("failed to send password reset email",
			slog.String("user_id", account.ID),
			slog.Any("error", err))
		return nil
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventForgotPassword,
		Email:     account.Email,
		UserID:    account.ID,
		Success:   true,
	})
	return nil
}

// ResetPassword sets a new password for the account named by a reset token.
// The token is spent only once the new password passes the policy.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.tokenManager.Validate(token, auth.TokenReset)
	if err != nil {
		s.auditFailure(ctx, pkglogger.EventResetPassword, "", "invalid_token")
		return models.ErrInvalidResetToken
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.auditFailure(ctx, pkglogger.EventResetPassword, claims.Email, "token_reused")
			return models.ErrInvalidResetToken
		}
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventResetPassword,
		Email:     claims.Email,
		UserID:    claims.Subject,
		Success:   true,
	})
	return nil
}

// OAuthSignIn stands in for the Google consent round trip: it signs in a
// fixed demo account, creating it on first use
func (s *AuthService) OAuthSignIn(ctx context.Context) (models.TokenPair, *models.Account, error) {
	account, err := s.userRepo.GetByEmail(ctx, DemoOAuthEmail)
	if errors.Is(err, models.ErrNotFound) {
		account, err = s.userRepo.Create(ctx, &models.Account{
			Email:    DemoOAuthEmail,
			Username: DemoOAuthUsername,
			Provider: models.ProviderGoogle,
		})
		// lost a creation race
		if errors.Is(err, models.ErrConflict) {
			account, err = s.userRepo.GetByEmail(ctx, DemoOAuthEmail)
		}
	}
	if err != nil {
		return models.TokenPair{}, nil, fmt.Errorf("failed to load demo account: %w", err)
	}

	pair, err := s.tokenManager.GenerateTokenPair(account.ID, account.Email)
	if err != nil {
		return models.TokenPair{}, nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOAuthCallback,
		Email:     account.Email,
		UserID:    account.ID,
		Success:   true,
	})
	return pair, account, nil
}

// Profile returns the account behind an access token
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.Account, error) {
	account, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// the token outlived its account
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}
	return account, nil
}

func (s *AuthService) auditFailure(ctx context.Context, event, email, reason string) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     event,
		Email:         email,
		Success:       false,
		FailureReason: reason,
	})
}
