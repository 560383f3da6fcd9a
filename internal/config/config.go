package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORAGE_BACKEND
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	API      APIConfig
	Client   ClientConfig
	Database DatabaseConfig
}

// APIConfig describes the remote backend the client talks to
type APIConfig struct {
	BaseURL string
	Timeout time.Duration // 0 leaves the transport default in place
}

type ClientConfig struct {
	Env                  string
	LogLevel             string
	StorageBackend       string
	StorageNamespace     string
	CallbackAddr         string
	CallbackDisplayDelay time.Duration
	CallbackRateLimit    int
	ResetRedirectDelay   time.Duration
	ToastDuration        time.Duration
	ToastMaxLen          int
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Load reads the client configuration from the environment (and .env if present)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:4000"), "/"),
			Timeout: getEnvAsDuration("API_TIMEOUT", 0),
		},
		Client: ClientConfig{
			Env:                  getEnv("ENV", "development"),
			LogLevel:             getEnv("LOG_LEVEL", "info"),
			StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
			StorageNamespace:     getEnv("STORAGE_NAMESPACE", "default"),
			CallbackAddr:         getEnv("CALLBACK_ADDR", "127.0.0.1:3000"),
			CallbackDisplayDelay: getEnvAsDuration("CALLBACK_DISPLAY_DELAY", 1*time.Second),
			CallbackRateLimit:    getEnvAsInt("CALLBACK_RATE_LIMIT", 30),
			ResetRedirectDelay:   getEnvAsDuration("RESET_REDIRECT_DELAY", 3*time.Second),
			ToastDuration:        getEnvAsDuration("TOAST_DURATION", 5*time.Second),
			ToastMaxLen:          getEnvAsInt("TOAST_MAX", 0),
		},
		Database: loadDatabaseConfig(),
	}

	if err := checkStorageBackend("STORAGE_BACKEND", cfg.Client.StorageBackend, &cfg.Database); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return nil, fmt.Errorf("API_BASE_URL must be an http(s) URL (got %q)", cfg.API.BaseURL)
	}

	return cfg, nil
}

// checkStorageBackend validates the backend named by the env variable key
func checkStorageBackend(key, backend string, db *DatabaseConfig) error {
	switch backend {
	case StorageMemory:
	case StoragePostgres:
		if db.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("unknown %s %q", key, backend)
	}
	return nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "pixora"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 4)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 1)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}
