package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTPManager issues the numeric codes emailed during registration. Each
// pending verification gets its own TOTP secret whose period is the code
// lifetime, so a code is only valid in its own window and the next one.
type OTPManager struct {
	issuer string
	ttl    time.Duration
}

func NewOTPManager(issuer string, ttl time.Duration) *OTPManager {
	return &OTPManager{issuer: issuer, ttl: ttl}
}

func (m *OTPManager) TTL() time.Duration {
	return m.ttl
}

func (m *OTPManager) opts(skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(m.ttl / time.Second),
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Issue creates a fresh secret for email and the code valid at now
func (m *OTPManager) Issue(email string, now time.Time) (secret, code string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: email,
		Period:      uint(m.ttl / time.Second),
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate OTP secret: %w", err)
	}

	code, err = totp.GenerateCodeCustom(key.Secret(), now, m.opts(0))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate OTP code: %w", err)
	}
	return key.Secret(), code, nil
}

// Verify checks code against secret. Codes older than the TTL are rejected
// even when they still fall in an accepted window.
func (m *OTPManager) Verify(secret, code string, issuedAt, now time.Time) bool {
	if now.Sub(issuedAt) > m.ttl {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, now, m.opts(1))
	return err == nil && valid
}
