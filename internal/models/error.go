package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Verification state errors
	ErrInvalidOTP        = errors.New("invalid or expired verification code")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrTooManyAttempts   = errors.New("too many attempts")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnsafePrompt       = errors.New("unsafe prompt")
)
