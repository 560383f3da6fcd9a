package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
)

// SentEmail is one message captured by MemoryEmailService
type SentEmail struct {
	To        string
	OTP       string
	Token     string
	ExpiresAt time.Time
}

// MemoryEmailService records outgoing mail so tests can read OTPs and reset tokens
type MemoryEmailService struct {
	mu     sync.Mutex
	otps   []SentEmail
	resets []SentEmail
}

func NewMemoryEmailService() *MemoryEmailService {
	return &MemoryEmailService{}
}

func (m *MemoryEmailService) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps = append(m.otps, SentEmail{To: email, OTP: code, ExpiresAt: expiresAt})
	return nil
}

func (m *MemoryEmailService) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, SentEmail{To: email, Token: token, ExpiresAt: expiresAt})
	return nil
}

// LastOTP returns the most recent code mailed to email
func (m *MemoryEmailService) LastOTP(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.otps) - 1; i >= 0; i-- {
		if m.otps[i].To == models.NormalizeEmail(email) {
			return m.otps[i].OTP, true
		}
	}
	return "", false
}

// LastResetToken returns the most recent reset token mailed to email
func (m *MemoryEmailService) LastResetToken(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.resets) - 1; i >= 0; i-- {
		if m.resets[i].To == models.NormalizeEmail(email) {
			return m.resets[i].Token, true
		}
	}
	return "", false
}

// Count returns how many OTP and reset messages were sent
func (m *MemoryEmailService) Count() (otps, resets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.otps), len(m.resets)
}

// MockEmailService implements EmailService with injectable failures
type MockEmailService struct {
	SendOTPFunc           func(ctx context.Context, email, code string, expiresAt time.Time) error
	SendPasswordResetFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, email, code, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.Account, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return account, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}
