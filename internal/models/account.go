package models

import (
	"strings"
	"time"
)

// Providers an account can be created through
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Account is the server-side user record held by the stub backend
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the user object sent to clients; the password hash never leaves the server
func (a *Account) Public() *User {
	return &User{
		ID:       UserID(a.ID),
		Email:    a.Email,
		Username: a.Username,
		Provider: a.Provider,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PendingVerification is an outstanding email OTP issued during registration
type PendingVerification struct {
	Email      string
	Secret     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Attempts   int
	VerifiedAt *time.Time
}

// IsExpired checks if the code can no longer be redeemed
func (p *PendingVerification) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IsVerified checks if the code has already been redeemed
func (p *PendingVerification) IsVerified() bool {
	return p.VerifiedAt != nil
}
