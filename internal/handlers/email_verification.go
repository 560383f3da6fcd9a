package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/validation"
	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

// EmailVerificationServiceInterface defines the registration steps
type EmailVerificationServiceInterface interface {
	Initiate(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	CompleteRegistration(ctx context.Context, claims *auth.Claims, req models.CompleteRegistrationRequest) (*models.Account, error)
}

type EmailVerificationHandler struct {
	service EmailVerificationServiceInterface
	logger  *slog.Logger
}

func NewEmailVerificationHandler(service EmailVerificationServiceInterface, logger *slog.Logger) *EmailVerificationHandler {
	return &EmailVerificationHandler{service: service, logger: logger}
}

// Initiate handles POST /api/v1/email/initiateEmailVerification
func (h *EmailVerificationHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg, valid := ValidateRequest(validation.EmailForm{Email: req.Email}); !valid {
		pkghttp.WriteBadRequest(w, msg)
		return
	}

	err := h.service.Initiate(r.Context(), req.Email)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, ok("Verification code sent"))
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Email already registered")
	default:
		writeServiceError(w, r, h.logger, err)
	}
}

// VerifyOTP handles POST /api/v1/email/verifyEmailOTP
func (h *EmailVerificationHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg, valid := ValidateRequest(validation.EmailForm{Email: req.Email}, validation.OTPForm{OTP: req.OTP}); !valid {
		pkghttp.WriteBadRequest(w, msg)
		return
	}

	token, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, models.VerifyOTPResponse{
			Envelope: ok("Email verified"),
			Data:     &models.VerifyOTPData{TempToken: token},
		})
	case errors.Is(err, models.ErrInvalidOTP):
		pkghttp.WriteBadRequest(w, "Invalid or expired OTP")
	case errors.Is(err, models.ErrTooManyAttempts):
		pkghttp.WriteTooManyRequests(w, "Too many incorrect codes. Please request a new one.")
	default:
		writeServiceError(w, r, h.logger, err)
	}
}

// CompleteRegistration handles POST /api/v1/email/completeRegistration; the
// route requires a registration token
func (h *EmailVerificationHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req models.CompleteRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, valid := ValidateRequest(
		validation.EmailForm{Email: req.Email},
		validation.ProfileForm{Username: req.Username, Password: req.Password, ConfirmPassword: req.ConfirmPassword},
	)
	if !valid {
		pkghttp.WriteBadRequest(w, msg)
		return
	}

	_, err := h.service.CompleteRegistration(r.Context(), claims, req)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusCreated, ok("Registration complete. Please sign in."))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Verification is invalid or has already been used")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Email already registered")
	default:
		writeServiceError(w, r, h.logger, err)
	}
}
