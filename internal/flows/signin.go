package flows

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/internal/validation"
	"github.com/BradenHooton/pixora/pkg/logger"
)

const (
	msgLoginFailed       = "Login failed. Please check your credentials."
	msgResetEmailFailed  = "Failed to send reset email"
	msgResetEmailNetwork = "Failed to send reset email. Please try again."
)

// SignInState is a snapshot of the credential form
type SignInState struct {
	Email          string
	Password       string
	RememberMe     bool
	Errors         FieldErrors
	Notice         string // positive message from the backend (forgot-password confirmation)
	Loading        bool
	ForgotPassword bool // forgot-password sub-form is showing
}

// SignIn is the credential form controller
type SignIn struct {
	deps  Deps
	scope *scope

	mu    sync.Mutex
	state SignInState
}

func NewSignIn(deps Deps) *SignIn {
	return &SignIn{
		deps:  deps.withDefaults(),
		scope: newScope(),
		state: SignInState{Errors: FieldErrors{}},
	}
}

func (f *SignIn) State() SignInState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Errors = f.state.Errors.clone()
	return s
}

// Close ends the flow; a request still in flight is cancelled and its result ignored
func (f *SignIn) Close() {
	f.scope.close()
}

// begin resets errors and marks the form busy. It must be called with f.mu held.
func (f *SignIn) begin() error {
	if f.scope.closed() {
		return ErrFlowClosed
	}
	if f.state.Loading {
		return ErrBusy
	}
	f.state.Errors = FieldErrors{}
	f.state.Notice = ""
	return nil
}

// SubmitSignIn validates the credentials locally and, if they pass, signs in.
// On success the session is persisted and the user is sent to the dashboard.
func (f *SignIn) SubmitSignIn(ctx context.Context, email, password string, rememberMe bool) error {
	f.mu.Lock()
	if err := f.begin(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.Email, f.state.Password, f.state.RememberMe = email, password, rememberMe

	if err := validation.Struct(validation.SignInForm{Email: email, Password: password}); err != nil {
		fieldError(f.state.Errors, err)
		f.mu.Unlock()
		return err
	}
	f.state.Loading = true
	f.mu.Unlock()

	ctx, cancel := f.scope.bind(ctx)
	defer cancel()

	resp, err := f.deps.API.SignIn(ctx, models.SignInRequest{Email: email, Password: password, RememberMe: rememberMe})
	if err == nil && !f.scope.closed() {
		err = f.persist(ctx, resp, rememberMe)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false

	if f.scope.closed() {
		return ErrFlowClosed
	}

	if err != nil {
		f.state.Errors[FieldGeneral] = failureMessage(err, msgLoginFailed, msgLoginFailed)
		f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
			EventType:     logger.EventSignIn,
			Email:         email,
			FailureReason: err.Error(),
		})
		return err
	}

	userID := ""
	if resp.User != nil {
		userID = string(resp.User.ID)
	}
	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventSignIn,
		Email:     email,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"remember_me": boolString(rememberMe)},
	})
	f.deps.Nav.Navigate(RouteDashboard)
	return nil
}

func (f *SignIn) persist(ctx context.Context, resp *models.SignInResponse, rememberMe bool) error {
	tokens := models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := persistSession(ctx, f.deps.Store, tokens, resp.User); err != nil {
		f.deps.Logger.Error("failed to persist session", slog.String("error", err.Error()))
		return err
	}

	if rememberMe {
		return f.deps.Store.Set(ctx, storage.KeyRememberMe, "true")
	}
	return f.deps.Store.Remove(ctx, storage.KeyRememberMe)
}

// SubmitForgotPassword requests a reset link. It never navigates.
func (f *SignIn) SubmitForgotPassword(ctx context.Context, email string) error {
	f.mu.Lock()
	if err := f.begin(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.Email = email

	if err := validation.Struct(validation.EmailForm{Email: email}); err != nil {
		fieldError(f.state.Errors, err)
		f.mu.Unlock()
		return err
	}
	f.state.Loading = true
	f.mu.Unlock()

	ctx, cancel := f.scope.bind(ctx)
	defer cancel()

	message, err := f.deps.API.ForgotPassword(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false

	if f.scope.closed() {
		return ErrFlowClosed
	}

	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventForgotPassword,
		Email:     email,
		Success:   err == nil,
	})

	if err != nil {
		f.state.Errors[FieldGeneral] = failureMessage(err, msgResetEmailFailed, msgResetEmailNetwork)
		return err
	}

	f.state.Notice = message
	f.state.Email = ""
	return nil
}

// ShowForgotPassword switches to the forgot-password sub-form
func (f *SignIn) ShowForgotPassword() {
	f.toggle(true)
}

// ShowSignIn switches back to the credential form
func (f *SignIn) ShowSignIn() {
	f.toggle(false)
}

func (f *SignIn) toggle(forgot bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.ForgotPassword = forgot
	f.state.Errors = FieldErrors{}
	f.state.Notice = ""
}

// RedirectToOAuth sends the user to the backend's Google sign-in entry point
func (f *SignIn) RedirectToOAuth() {
	f.deps.Nav.Navigate(f.deps.API.OAuthURL())
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
