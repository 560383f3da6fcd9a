package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StubConfig configures the development stand-in for the remote backend
type StubConfig struct {
	Port               string
	Env                string
	LogLevel           string
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	TempTokenExpiry    time.Duration
	ResetTokenExpiry   time.Duration
	OTPExpiry          time.Duration
	OAuthCallbackURL   string
	AuthRateLimit      int
	BcryptCost         int
	SignInMinDuration  time.Duration // responses to sign-in never return faster than this
	ImageBaseURL       string
	AllowedOrigins     []string
	CleanupInterval    time.Duration
	LogOTP             bool   // print issued OTP codes and reset links to the log (development only)
	StorageBackend     string // memory or postgres
	Email              EmailConfig
	Database           DatabaseConfig
}

type EmailConfig struct {
	AWSRegion    string // empty disables SES delivery
	FromAddress  string
	ResetURLBase string
}

// LoadStub reads the stub backend configuration from the environment
func LoadStub() (*StubConfig, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &StubConfig{
		Port:               getEnv("STUB_PORT", "4000"),
		Env:                env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTSecret:          jwtSecret,
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		TempTokenExpiry:    getEnvAsDuration("TEMP_TOKEN_EXPIRY", 15*time.Minute),
		ResetTokenExpiry:   getEnvAsDuration("RESET_TOKEN_EXPIRY", 1*time.Hour),
		OTPExpiry:          getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
		OAuthCallbackURL:   getEnv("OAUTH_CALLBACK_URL", "http://127.0.0.1:3000/auth-success"),
		AuthRateLimit:      getEnvAsInt("AUTH_RATE_LIMIT", 20),
		BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		SignInMinDuration:  getEnvAsDuration("SIGNIN_MIN_DURATION", 300*time.Millisecond),
		ImageBaseURL:       strings.TrimRight(getEnv("IMAGE_BASE_URL", "https://picsum.photos/seed"), "/"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 10*time.Minute),
		LogOTP:             getEnvAsBool("STUB_LOG_OTP", env != "production"),
		StorageBackend:     strings.ToLower(getEnv("STUB_STORAGE_BACKEND", StorageMemory)),
		Email: EmailConfig{
			AWSRegion:    getEnv("AWS_REGION", ""),
			FromAddress:  getEnv("EMAIL_FROM", "noreply@pixora.local"),
			ResetURLBase: strings.TrimRight(getEnv("RESET_URL_BASE", "http://localhost:3000"), "/"),
		},
		Database: loadDatabaseConfig(),
	}

	if err := checkStorageBackend("STUB_STORAGE_BACKEND", cfg.StorageBackend, &cfg.Database); err != nil {
		return nil, err
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.OTPExpiry < time.Minute {
		return nil, fmt.Errorf("OTP_EXPIRY must be at least 1m (got %s)", cfg.OTPExpiry)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}
