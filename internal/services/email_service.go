package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

// EmailService delivers the registration OTP and password reset links
type EmailService interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// ResetLink builds the link a user follows to reset their password
func ResetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password/%s", baseURL, url.PathEscape(token))
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

func (s *AWSSESEmailService) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h1>Verify your email address</h1>
    <p>Enter this code to continue creating your Pixora account:</p>
    <p style="font-size: 28px; letter-spacing: 6px;"><strong>%s</strong></p>
    <p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>
`, code, minutes)

	textBody := fmt.Sprintf(`Verify your email address

Enter this code to continue creating your Pixora account: %s

The code expires in %d minutes. If you did not request it, you can ignore this email.
`, code, minutes)

	return s.send(ctx, email, "Your Pixora verification code", htmlBody, textBody)
}

func (s *AWSSESEmailService) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := ResetLink(s.baseURL, token)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h1>Reset your password</h1>
    <p><a href="%s">Choose a new password</a></p>
    <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
    <p>The link expires at %s. If you did not ask for a reset, you can ignore this email.</p>
</body>
</html>
`, link, link, expiresAt.UTC().Format(time.RFC1123))

	textBody := fmt.Sprintf(`Reset your password

Open this link to choose a new password:
%s

The link expires at %s. If you did not ask for a reset, you can ignore this email.
`, link, expiresAt.UTC().Format(time.RFC1123))

	return s.send(ctx, email, "Reset your Pixora password", htmlBody, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("email", pkglogger.SanitizedEmail(to)),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService writes messages to the log instead of sending them. With
// revealSecrets set the OTP code and reset link are logged in clear, which is
// how a developer completes registration against a local stub.
type LogEmailService struct {
	logger        *slog.Logger
	baseURL       string
	revealSecrets bool
}

func NewLogEmailService(logger *slog.Logger, baseURL string, revealSecrets bool) *LogEmailService {
	return &LogEmailService{logger: logger, baseURL: baseURL, revealSecrets: revealSecrets}
}

func (s *LogEmailService) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	attrs := []slog.Attr{
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Time("expires_at", expiresAt),
	}
	if s.revealSecrets {
		attrs = append(attrs, slog.String("otp", code))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "verification code issued", attrs...)
	return nil
}

func (s *LogEmailService) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	attrs := []slog.Attr{
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Time("expires_at", expiresAt),
	}
	if s.revealSecrets {
		attrs = append(attrs, slog.String("reset_link", ResetLink(s.baseURL, token)))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "password reset link issued", attrs...)
	return nil
}
