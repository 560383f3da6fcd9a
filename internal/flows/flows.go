// Package flows implements the client-side authentication and dashboard
// state machines. Each flow issues at most one backend request per user
// action and owns a lifetime scope: after Close, in-flight requests are
// cancelled and late results are discarded.
package flows

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/notify"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/pkg/logger"
)

// Routes the flows navigate to
const (
	RouteDashboard = "/dashboard"
	RouteSignIn    = "/signin"
	RouteRegister  = "/register"

	RouteSignInGoogleFailed      = "/signin?error=google_failed"
	RouteSignInGoogleUserInvalid = "/signin?error=google_user_invalid"
)

var (
	ErrBusy              = errors.New("a request is already in flight")
	ErrFlowClosed        = errors.New("flow closed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMissingTempToken  = errors.New("missing verification token")
	ErrNotSignedIn       = errors.New("not signed in")
	ErrMalformedUser     = errors.New("malformed user payload")
	ErrOpaqueToken       = errors.New("access token is not a JWT")
	ErrAlreadyHandled    = errors.New("callback already handled")
	ErrEmptyPrompt       = errors.New("prompt is empty")
)

// Field keys used in FieldErrors
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldOTP             = "otp"
	FieldUsername        = "username"
	FieldGeneral         = "general"
)

// FieldErrors maps a form field (or "general") to its message
type FieldErrors map[string]string

func (fe FieldErrors) clone() FieldErrors {
	if fe == nil {
		return FieldErrors{}
	}
	return maps.Clone(fe)
}

// Navigator moves the user to another route. Flows may call it while holding
// their own lock, so Navigate must not call back into the calling flow.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Backend is the remote API as seen by the flows; *apiclient.Client implements it
type Backend interface {
	SignIn(ctx context.Context, req models.SignInRequest) (*models.SignInResponse, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error
	InitiateEmailVerification(ctx context.Context, email string) error
	VerifyEmailOTP(ctx context.Context, req models.VerifyOTPRequest) (string, error)
	CompleteRegistration(ctx context.Context, tempToken string, req models.CompleteRegistrationRequest) error
	Profile(ctx context.Context, accessToken string) (*models.User, error)
	OAuthURL() string

	ListConversations(ctx context.Context, accessToken string, limit int, after string) (*models.ConversationListResponse, error)
	GetConversation(ctx context.Context, accessToken, sessionID string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, accessToken, prompt string) (string, error)
	AddMessage(ctx context.Context, accessToken, sessionID string, req models.AddMessageRequest) error
	DeleteConversation(ctx context.Context, accessToken, sessionID string) error
	Generate(ctx context.Context, accessToken string, req models.GenerateRequest) (*models.GenerateResponse, error)
}

// Delays holds the scheduled-navigation delays. Zero navigates immediately.
type Delays struct {
	CallbackDisplay time.Duration
	ResetRedirect   time.Duration
}

// DefaultDelays are the delays used by the interactive client
func DefaultDelays() Delays {
	return Delays{CallbackDisplay: 1 * time.Second, ResetRedirect: 3 * time.Second}
}

// Deps are the collaborators shared by every flow
type Deps struct {
	API    Backend
	Store  storage.Store
	Nav    Navigator
	Notify *notify.Queue // optional
	Logger *slog.Logger
	Audit  *logger.AuditLogger
	Delays Delays
	Env    string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Audit == nil {
		d.Audit = logger.NewAuditLogger(d.Logger)
	}
	if d.Nav == nil {
		d.Nav = NavigatorFunc(func(string) {})
	}
	if d.Notify == nil {
		d.Notify = notify.New()
	}
	return d
}
