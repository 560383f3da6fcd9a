package flows

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/validation"
	"github.com/BradenHooton/pixora/pkg/logger"
)

// ResetStatus is the screen the password reset flow shows
type ResetStatus int

const (
	ResetForm ResetStatus = iota
	ResetSuccess
	ResetInvalid
)

func (s ResetStatus) String() string {
	switch s {
	case ResetForm:
		return "FORM"
	case ResetSuccess:
		return "SUCCESS"
	case ResetInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

const (
	msgInvalidResetToken = "Invalid or expired reset token"
	msgResetFailed       = "Failed to reset password"
	msgResetNetwork      = "Failed to reset password. Please try again."
)

type ResetState struct {
	Status          ResetStatus
	Password        string
	ConfirmPassword string
	Errors          FieldErrors
	Loading         bool
}

// PasswordReset submits a new password for the token taken from the reset link.
// SUCCESS and INVALID are terminal.
type PasswordReset struct {
	deps  Deps
	scope *scope
	token string

	mu    sync.Mutex
	state ResetState
}

// NewPasswordReset mounts the flow; an empty token lands directly in INVALID
func NewPasswordReset(token string, deps Deps) *PasswordReset {
	f := &PasswordReset{
		deps:  deps.withDefaults(),
		scope: newScope(),
		token: token,
		state: ResetState{Status: ResetForm, Errors: FieldErrors{}},
	}
	if token == "" {
		f.state.Status = ResetInvalid
		f.state.Errors[FieldGeneral] = msgInvalidResetToken
	}
	return f
}

func (f *PasswordReset) State() ResetState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Errors = f.state.Errors.clone()
	return s
}

func (f *PasswordReset) Close() {
	f.scope.close()
}

// Submit sends the new password. Only the FORM screen accepts submissions.
func (f *PasswordReset) Submit(ctx context.Context, password, confirmPassword string) error {
	f.mu.Lock()
	if f.scope.closed() || f.state.Status != ResetForm {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.state.Loading {
		f.mu.Unlock()
		return ErrBusy
	}
	f.state.Errors = FieldErrors{}
	f.state.Password, f.state.ConfirmPassword = password, confirmPassword

	if err := validation.Struct(validation.ResetForm{Password: password, ConfirmPassword: confirmPassword}); err != nil {
		fieldError(f.state.Errors, err)
		f.mu.Unlock()
		return err
	}
	f.state.Loading = true
	f.mu.Unlock()

	ctx, cancel := f.scope.bind(ctx)
	defer cancel()

	err := f.deps.API.ResetPassword(ctx, f.token, models.ResetPasswordRequest{
		Password:        password,
		ConfirmPassword: confirmPassword,
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false

	if f.scope.closed() {
		return ErrFlowClosed
	}

	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventResetPassword,
		Success:   err == nil,
	})

	switch {
	case err == nil:
		f.state.Status = ResetSuccess
		f.scope.after(f.deps.Delays.ResetRedirect, func() {
			f.deps.Nav.Navigate(RouteSignIn)
		})
		return nil

	case errors.Is(err, apiclient.ErrRejected) && apiclient.StatusCode(err) == http.StatusBadRequest:
		f.state.Status = ResetInvalid
		f.state.Errors[FieldGeneral] = apiclient.ServerMessage(err, msgInvalidResetToken)

	default:
		f.state.Errors[FieldGeneral] = failureMessage(err, msgResetFailed, msgResetNetwork)
	}
	return err
}

// BackToSignIn leaves the flow immediately, cancelling a scheduled redirect
func (f *PasswordReset) BackToSignIn() {
	f.scope.stopTimers()
	f.deps.Nav.Navigate(RouteSignIn)
}
