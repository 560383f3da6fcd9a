package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BradenHooton/pixora/internal/models"
)

// TokenType distinguishes the purposes a signed token can serve
type TokenType string

const (
	TokenAccess       TokenType = "access"
	TokenRefresh      TokenType = "refresh"
	TokenRegistration TokenType = "registration" // issued after OTP verification
	TokenReset        TokenType = "reset"        // embedded in password reset links
)

var ErrWrongTokenType = errors.New("token used for the wrong purpose")

// Claims are carried by every token. Subject is the user ID; registration
// tokens have no user yet and carry only the verified email.
type Claims struct {
	Type  TokenType `json:"type"`
	Email string    `json:"email"`
	jwt.RegisteredClaims
}

// TokenExpiry sets the lifetime per token type
type TokenExpiry struct {
	Access       time.Duration
	Refresh      time.Duration
	Registration time.Duration
	Reset        time.Duration
}

func (e TokenExpiry) of(typ TokenType) time.Duration {
	switch typ {
	case TokenAccess:
		return e.Access
	case TokenRefresh:
		return e.Refresh
	case TokenRegistration:
		return e.Registration
	default:
		return e.Reset
	}
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret []byte
	expiry TokenExpiry
	now    func() time.Time
}

func NewTokenManager(secret string, expiry TokenExpiry) *TokenManager {
	return &TokenManager{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// SetClock replaces the time source; used by tests to expire tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// Generate signs a token of the given type with a unique JTI
func (tm *TokenManager) Generate(typ TokenType, userID, email string) (string, *Claims, error) {
	now := tm.now()
	claims := &Claims{
		Type:  typ,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry.of(typ))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// GenerateTokenPair issues the access/refresh pair returned on sign-in
func (tm *TokenManager) GenerateTokenPair(userID, email string) (models.TokenPair, error) {
	access, _, err := tm.Generate(TokenAccess, userID, email)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, _, err := tm.Generate(TokenRefresh, userID, email)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate verifies signature, expiry and purpose of a token
func (tm *TokenManager) Validate(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, want)
	}
	return claims, nil
}
