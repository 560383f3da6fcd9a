package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/services"
	"github.com/BradenHooton/pixora/internal/validation"
	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (models.TokenPair, *models.Account, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	OAuthSignIn(ctx context.Context) (models.TokenPair, *models.Account, error)
	Profile(ctx context.Context, userID string) (*models.Account, error)
}

// AuthHandler handles sign-in, password recovery, the OAuth stand-in and profile
type AuthHandler struct {
	service          AuthServiceInterface
	oauthCallbackURL string
	logger           *slog.Logger
}

func NewAuthHandler(service AuthServiceInterface, oauthCallbackURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, oauthCallbackURL: oauthCallbackURL, logger: logger}
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg, valid := ValidateRequest(validation.SignInForm{Email: req.Email, Password: req.Password}); !valid {
		pkghttp.WriteBadRequest(w, msg)
		return
	}

	tokens, account, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, models.SignInResponse{
		Envelope:     ok("Signed in successfully"),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         account.Public(),
	})
}

// ForgotPassword handles POST /api/v1/authRoutes/forgot-password. The reply
// is the same whether or not the address is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg, valid := ValidateRequest(validation.EmailForm{Email: req.Email}); !valid {
		pkghttp.WriteBadRequest(w, msg)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ok(services.ForgotPasswordMessage))
}

// ResetPassword handles POST /api/v1/authRoutes/reset-password/{token}.
// 400 means the link is unusable; a password the policy rejects is a 422 so
// that the client keeps the form open.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req models.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if msg, valid := ValidateRequest(validation.ResetForm{Password: req.Password, ConfirmPassword: req.ConfirmPassword}); !valid {
		pkghttp.WriteUnprocessable(w, msg)
		return
	}

	err := h.service.ResetPassword(r.Context(), token, req.Password)
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, ok("Password has been reset"))
	case errors.Is(err, models.ErrInvalidResetToken):
		pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteUnprocessable(w, detail(err))
	default:
		writeServiceError(w, r, h.logger, err)
	}
}

// GoogleOAuth handles GET /auth/google by redirecting straight to the
// client's callback with a session for the demo account
func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) {
	target, err := url.Parse(h.oauthCallbackURL)
	if err != nil {
		h.logger.Error("invalid OAuth callback URL", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "OAuth is misconfigured")
		return
	}

	q := target.Query()
	tokens, account, err := h.service.OAuthSignIn(r.Context())
	if err == nil {
		var user []byte
		user, err = json.Marshal(account.Public())
		if err == nil {
			q.Set("accessToken", tokens.AccessToken)
			q.Set("refreshToken", tokens.RefreshToken)
			q.Set("user", string(user))
		}
	}
	if err != nil {
		h.logger.Error("OAuth sign-in failed", slog.Any("error", err))
		q.Set("error", "oauth_failed")
	}

	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// Profile handles GET /api/v1/email/user/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	account, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, models.ProfileResponse{
		Envelope: ok(""),
		User:     account.Public(),
	})
}
