package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.API.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout, "no client-side timeout by default")
	assert.Equal(t, StorageMemory, cfg.Client.StorageBackend)
	assert.Equal(t, "default", cfg.Client.StorageNamespace)
	assert.Equal(t, 1*time.Second, cfg.Client.CallbackDisplayDelay)
	assert.Equal(t, 3*time.Second, cfg.Client.ResetRedirectDelay)
	assert.Equal(t, 5*time.Second, cfg.Client.ToastDuration)
	assert.Equal(t, 0, cfg.Client.ToastMaxLen, "notification queue is unbounded by default")
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
}

func TestLoad_RejectsNonHTTPBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "ftp://example.com")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")

	t.Setenv("DB_PASSWORD", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Client.StorageBackend)
	assert.Contains(t, cfg.Database.DSN(), "password=secret")
}

func TestLoad_UnknownStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")

	_, err := Load()
	assert.ErrorContains(t, err, "redis")
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RESET_REDIRECT_DELAY", "not-a-duration")
	t.Setenv("TOAST_MAX", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Client.ResetRedirectDelay)
	assert.Equal(t, 25, cfg.Client.ToastMaxLen)
}

func TestLoadStub_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadStub()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadStub_SecretStrength(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{"short development secret", "development", "too-short", true},
		{"development minimum", "development", "0123456789abcdef", false},
		{"production needs 32 chars", "production", "0123456789abcdef0123", true},
		{"production strong secret", "production", "0123456789abcdef0123456789abcdef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			t.Setenv("JWT_SECRET", tt.secret)

			_, err := LoadStub()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadStub_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STUB_STORAGE_BACKEND", "")
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")

	cfg, err := LoadStub()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.OTPExpiry)
	assert.Equal(t, 15*time.Minute, cfg.TempTokenExpiry)
	assert.True(t, cfg.LogOTP)
	assert.Empty(t, cfg.Email.AWSRegion)
	assert.Equal(t, "http://127.0.0.1:3000/auth-success", cfg.OAuthCallbackURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
}

func TestLoadStub_StorageBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("STUB_STORAGE_BACKEND", "Postgres")
	t.Setenv("DB_PASSWORD", "")

	_, err := LoadStub()
	assert.ErrorContains(t, err, "DB_PASSWORD")

	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "pixora_stub")
	cfg, err := LoadStub()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Contains(t, cfg.Database.DSN(), "dbname=pixora_stub")

	t.Setenv("STUB_STORAGE_BACKEND", "sqlite")
	_, err = LoadStub()
	assert.ErrorContains(t, err, "STUB_STORAGE_BACKEND")
}

func TestLoadStub_AllowedOriginsList(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := LoadStub()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadStub_OTPExpiryFloor(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("OTP_EXPIRY", "10s")

	_, err := LoadStub()
	assert.ErrorContains(t, err, "OTP_EXPIRY")
}
