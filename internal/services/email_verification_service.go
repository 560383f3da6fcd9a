package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
	pkgauth "github.com/BradenHooton/pixora/pkg/auth"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

// DefaultMaxOTPAttempts is how many wrong codes a pending verification survives
const DefaultMaxOTPAttempts = 5

// EmailVerificationRepository stores the pending OTP per address
type EmailVerificationRepository interface {
	Upsert(ctx context.Context, p *models.PendingVerification) error
	Get(ctx context.Context, email string) (*models.PendingVerification, error)
	IncrementAttempts(ctx context.Context, email string) (int, error)
	MarkVerified(ctx context.Context, email string, at time.Time) error
	Delete(ctx context.Context, email string) error
}

// EmailVerificationService runs the three registration steps: issue an OTP,
// exchange it for a registration token, then create the account
type EmailVerificationService struct {
	verificationRepo EmailVerificationRepository
	userRepo         UserRepository
	revokeRepo       TokenRevocationRepository
	otpManager       *auth.OTPManager
	tokenManager     *auth.TokenManager
	hasher           pkgauth.Hasher
	emailService     EmailService
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
	maxAttempts      int
	now              func() time.Time
}

func NewEmailVerificationService(
	verificationRepo EmailVerificationRepository,
	userRepo UserRepository,
	revokeRepo TokenRevocationRepository,
	otpManager *auth.OTPManager,
	tokenManager *auth.TokenManager,
	hasher pkgauth.Hasher,
	emailService EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *EmailVerificationService {
	return &EmailVerificationService{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		revokeRepo:       revokeRepo,
		otpManager:       otpManager,
		tokenManager:     tokenManager,
		hasher:           hasher,
		emailService:     emailService,
		logger:           logger,
		auditLogger:      auditLogger,
		maxAttempts:      DefaultMaxOTPAttempts,
		now:              time.Now,
	}
}

// SetClock replaces the time source (tests)
func (s *EmailVerificationService) SetClock(now func() time.Time) {
	s.now = now
}

// Initiate mails a fresh code to an unregistered address, replacing any
// earlier one. Registered addresses get models.ErrConflict.
func (s *EmailVerificationService) Initiate(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		s.audit(ctx, pkglogger.EventEmailVerification, email, "already_registered")
		return models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	now := s.now()
	secret, code, err := s.otpManager.Issue(email, now)
	if err != nil {
		return err
	}

	pending := &models.PendingVerification{
		Email:     email,
		Secret:    secret,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.otpManager.TTL()),
	}
	if err := s.verificationRepo.Upsert(ctx, pending); err != nil {
		return fmt.Errorf("failed to store verification: %w", err)
	}

	if err := s.emailService.SendOTP(ctx, email, code, pending.ExpiresAt); err != nil {
		s.logger.Error("failed to send verification code",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	s.audit(ctx, pkglogger.EventEmailVerification, email, "")
	return nil
}

// VerifyOTP redeems a code and returns the registration token. Each code
// can be redeemed once; wrong codes count toward the attempt limit.
func (s *EmailVerificationService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = models.NormalizeEmail(email)
	now := s.now()

	pending, err := s.verificationRepo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit(ctx, pkglogger.EventOTPVerification, email, "no_pending_code")
			return "", models.ErrInvalidOTP
		}
		return "", err
	}

	switch {
	case pending.IsVerified():
		s.audit(ctx, pkglogger.EventOTPVerification, email, "code_reused")
		return "", models.ErrInvalidOTP
	case pending.IsExpired(now):
		s.audit(ctx, pkglogger.EventOTPVerification, email, "code_expired")
		return "", models.ErrInvalidOTP
	case pending.Attempts >= s.maxAttempts:
		s.audit(ctx, pkglogger.EventOTPVerification, email, "too_many_attempts")
		return "", models.ErrTooManyAttempts
	}

	if !s.otpManager.Verify(pending.Secret, strings.TrimSpace(code), pending.IssuedAt, now) {
		if _, err := s.verificationRepo.IncrementAttempts(ctx, email); err != nil && !errors.Is(err, models.ErrNotFound) {
			return "", err
		}
		s.audit(ctx, pkglogger.EventOTPVerification, email, "wrong_code")
		return "", models.ErrInvalidOTP
	}

	if err := s.verificationRepo.MarkVerified(ctx, email, now); err != nil {
		if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
			return "", models.ErrInvalidOTP
		}
		return "", err
	}

	token, _, err := s.tokenManager.Generate(auth.TokenRegistration, "", email)
	if err != nil {
		return "", err
	}

	s.audit(ctx, pkglogger.EventOTPVerification, email, "")
	return token, nil
}

// CompleteRegistration creates the account for the email proven by claims.
// The registration token is single-use.
func (s *EmailVerificationService) CompleteRegistration(ctx context.Context, claims *auth.Claims, req models.CompleteRegistrationRequest) (*models.Account, error) {
	email := models.NormalizeEmail(req.Email)
	if email != models.NormalizeEmail(claims.Email) {
		s.audit(ctx, pkglogger.EventRegistration, email, "email_mismatch")
		return nil, models.ErrUnauthorized
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrBadRequest)
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", models.ErrBadRequest)
	}
	if err := pkgauth.ValidatePassword(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.audit(ctx, pkglogger.EventRegistration, email, "token_reused")
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	account, err := s.userRepo.Create(ctx, &models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Provider:     models.ProviderEmail,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.audit(ctx, pkglogger.EventRegistration, email, "already_registered")
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.verificationRepo.Delete(ctx, email); err != nil {
		s.logger.Warn("failed to drop pending verification", slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegistration,
		Email:     email,
		UserID:    account.ID,
		Success:   true,
	})
	return account, nil
}

// audit records a verification step; an empty reason means success
func (s *EmailVerificationService) audit(ctx context.Context, event, email, reason string) {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     event,
		Email:         email,
		Success:       reason == "",
		FailureReason: reason,
	})
}
