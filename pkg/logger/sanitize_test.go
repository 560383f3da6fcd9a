package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@mail.example.org", "a@****.*******.org"},
		{"abc", "[invalid-email]"},
		{"a@b@c", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactedAttr("otp", "123456", "production").Value.String())
	assert.Equal(t, "123456", RedactedAttr("otp", "123456", "development").Value.String())
}

func TestTokenAttr(t *testing.T) {
	assert.Equal(t, "…cdef", TokenAttr("access", "0123456789abcdef").Value.String())
	assert.Equal(t, "[REDACTED]", TokenAttr("access", "tok123").Value.String())
	assert.Empty(t, TokenAttr("access", "").Value.String())
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("accessToken=tok123&refreshToken=ref456"))
	assert.True(t, SanitizeQueryString("user=%7B%22id%22%3A1%7D"))
	assert.False(t, SanitizeQueryString("limit=20&after=abc"))
	assert.False(t, SanitizeQueryString(""))
}
