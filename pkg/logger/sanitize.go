package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	// keep the TLD only
	labels := strings.Split(domain, ".")
	if len(labels) > 1 {
		for i := range labels[:len(labels)-1] {
			labels[i] = strings.Repeat("*", len(labels[i]))
		}
		domain = strings.Join(labels, ".")
	}

	return local + "@" + domain
}

// RedactedAttr returns a redacted slog attribute for sensitive values.
// In production the value is replaced with "[REDACTED]".
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// TokenAttr logs a bearer token by its last four characters only
func TokenAttr(key, token string) slog.Attr {
	if token == "" {
		return slog.String(key, "")
	}
	if len(token) <= 8 {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, "…"+token[len(token)-4:])
}

var sensitiveParams = []string{
	"password",
	"token", // accessToken, refreshToken, tempToken
	"secret",
	"otp",
	"email",
	"user",
	"auth",
	"code",
}

// SanitizeQueryString reports whether rawQuery names a sensitive parameter
// and must be redacted as a whole before logging
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
