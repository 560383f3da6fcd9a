package flows

import (
	"context"
	"fmt"
	"sync"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/internal/validation"
	"github.com/BradenHooton/pixora/pkg/logger"
)

// Step is a registration wizard state
type Step int

const (
	StepInitial Step = iota
	StepEmailVerification
	StepOTPVerification
	StepCompleteProfile
)

func (s Step) String() string {
	switch s {
	case StepInitial:
		return "INITIAL"
	case StepEmailVerification:
		return "EMAIL_VERIFICATION"
	case StepOTPVerification:
		return "OTP_VERIFICATION"
	case StepCompleteProfile:
		return "COMPLETE_PROFILE"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Event drives the registration wizard
type Event int

const (
	EventChooseEmail Event = iota
	EventEmailSent
	EventOTPVerified
	EventRegistered
	EventBack
)

func (e Event) String() string {
	switch e {
	case EventChooseEmail:
		return "choose_email"
	case EventEmailSent:
		return "email_sent"
	case EventOTPVerified:
		return "otp_verified"
	case EventRegistered:
		return "registered"
	case EventBack:
		return "back"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

type transitionKey struct {
	step  Step
	event Event
}

var transitions = map[transitionKey]Step{
	{StepInitial, EventChooseEmail}:         StepEmailVerification,
	{StepEmailVerification, EventEmailSent}: StepOTPVerification,
	{StepEmailVerification, EventBack}:      StepInitial,
	{StepOTPVerification, EventOTPVerified}: StepCompleteProfile,
	{StepOTPVerification, EventBack}:        StepEmailVerification,
	{StepCompleteProfile, EventRegistered}:  StepCompleteProfile,
}

// Transition returns the step that follows step on event. Forward events
// only advance by one step and Back only retreats by one.
func Transition(step Step, event Event) (Step, error) {
	next, ok := transitions[transitionKey{step, event}]
	if !ok {
		return step, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, step, event)
	}
	return next, nil
}

const (
	msgSendOTPFailed       = "Failed to send OTP"
	msgInvalidOTP          = "Invalid OTP"
	msgVerifyOTPFailed     = "Failed to verify OTP"
	msgMissingTempToken    = "Missing authentication token. Please verify OTP again."
	msgRegistrationFailed  = "Registration failed"
	msgRegistrationNetwork = "Registration failed. Please try again."
)

// RegistrationState is a snapshot of the wizard
type RegistrationState struct {
	Step            Step
	Email           string
	OTP             string
	Username        string
	Password        string
	ConfirmPassword string
	TempToken       string
	Errors          FieldErrors
	Loading         bool
	Completed       bool
}

// Registration is the four-step sign-up wizard
type Registration struct {
	deps  Deps
	scope *scope

	mu    sync.Mutex
	state RegistrationState
}

func NewRegistration(deps Deps) *Registration {
	return &Registration{
		deps:  deps.withDefaults(),
		scope: newScope(),
		state: RegistrationState{Step: StepInitial, Errors: FieldErrors{}},
	}
}

func (f *Registration) State() RegistrationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Errors = f.state.Errors.clone()
	return s
}

func (f *Registration) Close() {
	f.scope.close()
}

// expect checks that the wizard can take event right now. Call with f.mu held.
func (f *Registration) expect(event Event) error {
	if f.scope.closed() {
		return ErrFlowClosed
	}
	if f.state.Loading {
		return ErrBusy
	}
	if f.state.Completed {
		return fmt.Errorf("%w: registration already completed", ErrInvalidTransition)
	}
	_, err := Transition(f.state.Step, event)
	return err
}

// advance applies event; the transition was already checked by expect
func (f *Registration) advance(event Event) {
	if next, err := Transition(f.state.Step, event); err == nil {
		f.state.Step = next
	}
}

// ChooseEmail picks email registration from the initial screen
func (f *Registration) ChooseEmail() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(EventChooseEmail); err != nil {
		return err
	}
	f.state.Errors = FieldErrors{}
	f.advance(EventChooseEmail)
	return nil
}

// Back retreats one step, clearing only the current step's input and errors
func (f *Registration) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(EventBack); err != nil {
		return err
	}
	if f.state.Step == StepOTPVerification {
		f.state.OTP = ""
	}
	f.state.Errors = FieldErrors{}
	f.advance(EventBack)
	return nil
}

// SubmitEmail asks the backend to email an OTP to email
func (f *Registration) SubmitEmail(ctx context.Context, email string) error {
	f.mu.Lock()
	if err := f.expect(EventEmailSent); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.Errors = FieldErrors{}
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

	err := f.deps.API.InitiateEmailVerification(ctx, email)
	if err == nil && !f.scope.closed() {
		err = f.deps.Store.Set(ctx, storage.KeyUserEmail, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false

	if f.scope.closed() {
		return ErrFlowClosed
	}

	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventEmailVerification,
		Email:     email,
		Success:   err == nil,
	})

	if err != nil {
		f.state.Errors[FieldEmail] = failureMessage(err, msgSendOTPFailed, msgSendOTPFailed)
		return err
	}

	f.advance(EventEmailSent)
	return nil
}

// SubmitOTP verifies the emailed code. The OTP input is cleared whatever the outcome.
func (f *Registration) SubmitOTP(ctx context.Context, otp string) error {
	f.mu.Lock()
	if err := f.expect(EventOTPVerified); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.Errors = FieldErrors{}

	if err := validation.Struct(validation.OTPForm{OTP: otp}); err != nil {
		fieldError(f.state.Errors, err)
		f.state.OTP = ""
		f.mu.Unlock()
		return err
	}
	f.state.OTP = otp
	f.state.Loading = true
	fallbackEmail := f.state.Email
	f.mu.Unlock()

	ctx, cancel := f.scope.bind(ctx)
	defer cancel()

	email, err := storage.Lookup(ctx, f.deps.Store, storage.KeyUserEmail)
	if err == nil && email == "" {
		email = fallbackEmail
	}

	var tempToken string
	if err == nil {
		tempToken, err = f.deps.API.VerifyEmailOTP(ctx, models.VerifyOTPRequest{Email: email, OTP: otp})
	}
	if err == nil && !f.scope.closed() {
		err = f.persistVerification(ctx, tempToken, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false
	f.state.OTP = ""

	if f.scope.closed() {
		return ErrFlowClosed
	}

	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventOTPVerification,
		Email:     email,
		Success:   err == nil,
	})

	if err != nil {
		f.state.Errors[FieldOTP] = failureMessage(err, msgInvalidOTP, msgVerifyOTPFailed)
		return err
	}

	f.state.TempToken = tempToken
	f.state.Email = email
	f.advance(EventOTPVerified)
	return nil
}

func (f *Registration) persistVerification(ctx context.Context, tempToken, email string) error {
	if err := f.deps.Store.Set(ctx, storage.KeyTempToken, tempToken); err != nil {
		return err
	}
	return f.deps.Store.Set(ctx, storage.KeyUserEmail, email)
}

// SubmitProfile completes the registration using the verification token.
// On success the user is sent to sign-in exactly once.
func (f *Registration) SubmitProfile(ctx context.Context, username, password, confirmPassword string) error {
	f.mu.Lock()
	if err := f.expect(EventRegistered); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state.Errors = FieldErrors{}
	f.state.Username, f.state.Password, f.state.ConfirmPassword = username, password, confirmPassword

	form := validation.ProfileForm{Username: username, Password: password, ConfirmPassword: confirmPassword}
	if err := validation.Struct(form); err != nil {
		fieldError(f.state.Errors, err)
		f.mu.Unlock()
		return err
	}
	f.state.Loading = true
	tempToken := f.state.TempToken
	email := f.state.Email
	f.mu.Unlock()

	ctx, cancel := f.scope.bind(ctx)
	defer cancel()

	err := f.resolveCredentials(ctx, &tempToken, &email)
	if err == nil && tempToken == "" {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.Loading = false
		f.state.Errors[FieldGeneral] = msgMissingTempToken
		return ErrMissingTempToken
	}
	if err == nil {
		err = f.deps.API.CompleteRegistration(ctx, tempToken, models.CompleteRegistrationRequest{
			Email:           email,
			Username:        username,
			Password:        password,
			ConfirmPassword: confirmPassword,
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Loading = false

	if f.scope.closed() {
		return ErrFlowClosed
	}

	f.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventRegistration,
		Email:     email,
		Success:   err == nil,
	})

	if err != nil {
		f.state.Errors[FieldGeneral] = failureMessage(err, msgRegistrationFailed, msgRegistrationNetwork)
		return err
	}

	f.advance(EventRegistered)
	f.state.Completed = true
	f.deps.Nav.Navigate(RouteSignIn)
	return nil
}

// resolveCredentials fills in the token and email from storage. The in-memory
// token wins over the stored one; the stored email wins over the in-memory one.
func (f *Registration) resolveCredentials(ctx context.Context, tempToken, email *string) error {
	if *tempToken == "" {
		stored, err := storage.Lookup(ctx, f.deps.Store, storage.KeyTempToken)
		if err != nil {
			return err
		}
		*tempToken = stored
	}

	stored, err := storage.Lookup(ctx, f.deps.Store, storage.KeyUserEmail)
	if err != nil {
		return err
	}
	if stored != "" {
		*email = stored
	}
	return nil
}
