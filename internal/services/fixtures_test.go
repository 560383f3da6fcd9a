package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/repositories"
	pkgauth "github.com/BradenHooton/pixora/pkg/auth"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

const testSecret = "test-secret-32-characters-long!!"

type fixture struct {
	users         *repositories.UserRepository
	verifications *repositories.EmailVerificationRepository
	revocations   *repositories.TokenRevocationRepository
	tokens        *auth.TokenManager
	otp           *auth.OTPManager
	hasher        pkgauth.Hasher
	mail          *MemoryEmailService

	auth         *AuthService
	verification *EmailVerificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)

	f := &fixture{
		users:         repositories.NewUserRepository(),
		verifications: repositories.NewEmailVerificationRepository(),
		revocations:   repositories.NewTokenRevocationRepository(),
		tokens: auth.NewTokenManager(testSecret, auth.TokenExpiry{
			Access:       15 * time.Minute,
			Refresh:      time.Hour,
			Registration: 15 * time.Minute,
			Reset:        time.Hour,
		}),
		otp:    auth.NewOTPManager("Pixora", 10*time.Minute),
		hasher: pkgauth.NewHasher(bcrypt.MinCost),
		mail:   NewMemoryEmailService(),
	}

	f.auth = NewAuthService(f.users, f.revocations, f.tokens, f.hasher, auth.TimingDelay{}, f.mail, logger, audit)
	f.verification = NewEmailVerificationService(
		f.verifications, f.users, f.revocations, f.otp, f.tokens, f.hasher, f.mail, logger, audit,
	)
	return f
}

// createAccount stores a password account directly
func (f *fixture) createAccount(t *testing.T, email, password string) *models.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	account, err := f.users.Create(context.Background(), &models.Account{
		Email:        email,
		Username:     "Test User",
		PasswordHash: hash,
		Provider:     models.ProviderEmail,
	})
	require.NoError(t, err)
	return account
}

// wrongCode returns a six-digit code different from code
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
