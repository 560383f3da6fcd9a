package flows

import (
	"context"
	"sync"

	"github.com/BradenHooton/pixora/internal/models"
)

// MockBackend implements Backend for testing. Unset funcs succeed with
// zero values; every call is counted by method name.
type MockBackend struct {
	SignInFunc                    func(ctx context.Context, req models.SignInRequest) (*models.SignInResponse, error)
	ForgotPasswordFunc            func(ctx context.Context, email string) (string, error)
	ResetPasswordFunc             func(ctx context.Context, token string, req models.ResetPasswordRequest) error
	InitiateEmailVerificationFunc func(ctx context.Context, email string) error
	VerifyEmailOTPFunc            func(ctx context.Context, req models.VerifyOTPRequest) (string, error)
	CompleteRegistrationFunc      func(ctx context.Context, tempToken string, req models.CompleteRegistrationRequest) error
	ProfileFunc                   func(ctx context.Context, accessToken string) (*models.User, error)
	ListConversationsFunc         func(ctx context.Context, accessToken string, limit int, after string) (*models.ConversationListResponse, error)
	GetConversationFunc           func(ctx context.Context, accessToken, sessionID string) (*models.Conversation, error)
	CreateConversationFunc        func(ctx context.Context, accessToken, prompt string) (string, error)
	AddMessageFunc                func(ctx context.Context, accessToken, sessionID string, req models.AddMessageRequest) error
	DeleteConversationFunc        func(ctx context.Context, accessToken, sessionID string) error
	GenerateFunc                  func(ctx context.Context, accessToken string, req models.GenerateRequest) (*models.GenerateResponse, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockBackend) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was called
func (m *MockBackend) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of requests issued across all methods
func (m *MockBackend) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockBackend) SignIn(ctx context.Context, req models.SignInRequest) (*models.SignInResponse, error) {
	m.record("SignIn")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, req)
	}
	return &models.SignInResponse{Envelope: models.Envelope{Success: true}, AccessToken: "access"}, nil
}

func (m *MockBackend) ForgotPassword(ctx context.Context, email string) (string, error) {
	m.record("ForgotPassword")
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return "", nil
}

func (m *MockBackend) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error {
	m.record("ResetPassword")
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, req)
	}
	return nil
}

func (m *MockBackend) InitiateEmailVerification(ctx context.Context, email string) error {
	m.record("InitiateEmailVerification")
	if m.InitiateEmailVerificationFunc != nil {
		return m.InitiateEmailVerificationFunc(ctx, email)
	}
	return nil
}

func (m *MockBackend) VerifyEmailOTP(ctx context.Context, req models.VerifyOTPRequest) (string, error) {
	m.record("VerifyEmailOTP")
	if m.VerifyEmailOTPFunc != nil {
		return m.VerifyEmailOTPFunc(ctx, req)
	}
	return "temp", nil
}

func (m *MockBackend) CompleteRegistration(ctx context.Context, tempToken string, req models.CompleteRegistrationRequest) error {
	m.record("CompleteRegistration")
	if m.CompleteRegistrationFunc != nil {
		return m.CompleteRegistrationFunc(ctx, tempToken, req)
	}
	return nil
}

func (m *MockBackend) Profile(ctx context.Context, accessToken string) (*models.User, error) {
	m.record("Profile")
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, accessToken)
	}
	return &models.User{}, nil
}

func (m *MockBackend) OAuthURL() string {
	return "http://backend.test/auth/google"
}

func (m *MockBackend) ListConversations(ctx context.Context, accessToken string, limit int, after string) (*models.ConversationListResponse, error) {
	m.record("ListConversations")
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, accessToken, limit, after)
	}
	return &models.ConversationListResponse{}, nil
}

func (m *MockBackend) GetConversation(ctx context.Context, accessToken, sessionID string) (*models.Conversation, error) {
	m.record("GetConversation")
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, accessToken, sessionID)
	}
	return &models.Conversation{SessionID: sessionID}, nil
}

func (m *MockBackend) CreateConversation(ctx context.Context, accessToken, prompt string) (string, error) {
	m.record("CreateConversation")
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, accessToken, prompt)
	}
	return "session", nil
}

func (m *MockBackend) AddMessage(ctx context.Context, accessToken, sessionID string, req models.AddMessageRequest) error {
	m.record("AddMessage")
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, accessToken, sessionID, req)
	}
	return nil
}

func (m *MockBackend) DeleteConversation(ctx context.Context, accessToken, sessionID string) error {
	m.record("DeleteConversation")
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, accessToken, sessionID)
	}
	return nil
}

func (m *MockBackend) Generate(ctx context.Context, accessToken string, req models.GenerateRequest) (*models.GenerateResponse, error) {
	m.record("Generate")
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, accessToken, req)
	}
	return &models.GenerateResponse{ImageURL: "https://img.test/1.png"}, nil
}

// RecordingNavigator remembers every route it was sent to
type RecordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *RecordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *RecordingNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}
