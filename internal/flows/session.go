package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/pkg/logger"
)

const msgSessionExpired = "Your session has expired. Please sign in again."

// AccessClaims is what the client can read from its own access token.
// The signature is not verified; only the backend can do that.
type AccessClaims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp is in the past relative to now
func (c AccessClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Session reads and clears the persisted token pair
type Session struct {
	deps Deps
}

func NewSession(deps Deps) *Session {
	return &Session{deps: deps.withDefaults()}
}

func (s *Session) Tokens(ctx context.Context) (models.TokenPair, error) {
	access, err := storage.Lookup(ctx, s.deps.Store, storage.KeyAccessToken)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := storage.Lookup(ctx, s.deps.Store, storage.KeyRefreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// AccessToken returns the stored access token or ErrNotSignedIn
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	token, err := storage.Lookup(ctx, s.deps.Store, storage.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNotSignedIn
	}
	return token, nil
}

// User returns the stored user, or nil when none is stored
func (s *Session) User(ctx context.Context) (*models.User, error) {
	raw, err := storage.Lookup(ctx, s.deps.Store, storage.KeyUser)
	if err != nil || raw == "" {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedUser, err)
	}
	return &user, nil
}

// AccessClaims decodes the stored access token without verifying it
func (s *Session) AccessClaims(ctx context.Context) (*AccessClaims, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpaqueToken, err)
	}

	out := &AccessClaims{}
	out.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	return out, nil
}

// SignOut forgets the session and returns to sign-in
func (s *Session) SignOut(ctx context.Context) error {
	err := storage.RemoveAll(ctx, s.deps.Store,
		storage.KeyAccessToken,
		storage.KeyRefreshToken,
		storage.KeyTempToken,
		storage.KeyUser,
	)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.deps.Audit.LogSessionAction(ctx, logger.EventSignOut, nil)
	s.deps.Nav.Navigate(RouteSignIn)
	return nil
}

// Expire handles a 401 on an authenticated call: the tokens are dropped,
// the user is told, and sent back to sign-in
func (s *Session) Expire(ctx context.Context) error {
	err := storage.RemoveAll(ctx, s.deps.Store, storage.KeyAccessToken, storage.KeyRefreshToken)

	s.deps.Audit.LogSessionAction(ctx, logger.EventSessionExpired, nil)
	s.deps.Notify.Error(msgSessionExpired)
	s.deps.Nav.Navigate(RouteSignIn)

	if err != nil {
		return fmt.Errorf("failed to clear expired session: %w", err)
	}
	return nil
}

// handleAuthError expires the session when err is a 401 and reports whether it did
func (s *Session) handleAuthError(ctx context.Context, err error) bool {
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		return false
	}
	// the caller's ctx may already be done; clearing tokens must still happen
	_ = s.Expire(context.WithoutCancel(ctx))
	return true
}
