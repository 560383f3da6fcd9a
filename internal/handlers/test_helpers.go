package handlers

import (
	"context"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignInFunc         func(ctx context.Context, email, password string) (models.TokenPair, *models.Account, error)
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, password string) error
	OAuthSignInFunc    func(ctx context.Context) (models.TokenPair, *models.Account, error)
	ProfileFunc        func(ctx context.Context, userID string) (*models.Account, error)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (models.TokenPair, *models.Account, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return models.TokenPair{}, nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, password string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, password)
	}
	return nil
}

func (m *MockAuthService) OAuthSignIn(ctx context.Context) (models.TokenPair, *models.Account, error) {
	if m.OAuthSignInFunc != nil {
		return m.OAuthSignInFunc(ctx)
	}
	return models.TokenPair{}, nil, models.ErrNotFound
}

func (m *MockAuthService) Profile(ctx context.Context, userID string) (*models.Account, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	return nil, models.ErrUnauthorized
}

// MockEmailVerificationService implements EmailVerificationServiceInterface for testing
type MockEmailVerificationService struct {
	InitiateFunc             func(ctx context.Context, email string) error
	VerifyOTPFunc            func(ctx context.Context, email, code string) (string, error)
	CompleteRegistrationFunc func(ctx context.Context, claims *auth.Claims, req models.CompleteRegistrationRequest) (*models.Account, error)
}

func (m *MockEmailVerificationService) Initiate(ctx context.Context, email string) error {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, email)
	}
	return nil
}

func (m *MockEmailVerificationService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return "", models.ErrInvalidOTP
}

func (m *MockEmailVerificationService) CompleteRegistration(ctx context.Context, claims *auth.Claims, req models.CompleteRegistrationRequest) (*models.Account, error) {
	if m.CompleteRegistrationFunc != nil {
		return m.CompleteRegistrationFunc(ctx, claims, req)
	}
	return &models.Account{ID: "u1", Email: req.Email, Username: req.Username}, nil
}

// MockConversationService implements ConversationServiceInterface for testing
type MockConversationService struct {
	ListFunc       func(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error)
	GetFunc        func(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error)
	CreateFunc     func(ctx context.Context, ownerID, prompt string) (string, error)
	AddMessageFunc func(ctx context.Context, ownerID, sessionID string, req models.AddMessageRequest) error
	DeleteFunc     func(ctx context.Context, ownerID, sessionID string) error
	GenerateFunc   func(ctx context.Context, ownerID string, req models.GenerateRequest) (*models.GenerateResponse, error)
}

func (m *MockConversationService) List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, limit, after)
	}
	return nil, "", nil
}

func (m *MockConversationService) Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerID, sessionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockConversationService) Create(ctx context.Context, ownerID, prompt string) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ownerID, prompt)
	}
	return "session-1", nil
}

func (m *MockConversationService) AddMessage(ctx context.Context, ownerID, sessionID string, req models.AddMessageRequest) error {
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, ownerID, sessionID, req)
	}
	return nil
}

func (m *MockConversationService) Delete(ctx context.Context, ownerID, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ownerID, sessionID)
	}
	return nil
}

func (m *MockConversationService) Generate(ctx context.Context, ownerID string, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, ownerID, req)
	}
	return &models.GenerateResponse{Envelope: models.Envelope{Success: true}, ImageURL: "https://img.test/1.png"}, nil
}
