package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types shared by the client flows and the stub backend
const (
	EventSignIn              = "sign_in"
	EventForgotPassword      = "forgot_password"
	EventResetPassword       = "reset_password"
	EventEmailVerification   = "email_verification"
	EventOTPVerification     = "otp_verification"
	EventRegistration        = "registration"
	EventOAuthCallback       = "oauth_callback"
	EventSignOut             = "sign_out"
	EventSessionExpired      = "session_expired"
	EventConversationDeleted = "conversation_deleted"
)

// AuditEvent represents an authentication-relevant client event
type AuditEvent struct {
	EventType     string
	Email         string // masked before logging
	UserID        string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs the outcome of a sign-in, registration or reset step
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogSessionAction logs session lifecycle actions (sign-out, expiry, deletions)
func (al *AuditLogger) LogSessionAction(ctx context.Context, eventType string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "session"),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
