package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

const rateLimitMessage = "Too many requests. Please wait a moment and try again."

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	// OnLimit writes the 429 response; nil writes the JSON error envelope
	OnLimit http.HandlerFunc
}

// DefaultAuthRateLimit returns the limit applied to credential endpoints (20 requests per minute)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 20}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	onLimit := config.OnLimit
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, rateLimitMessage)
		}
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(onLimit),
	)
}

// PlainTextLimit answers a limited request with a plain-text body
func PlainTextLimit(w http.ResponseWriter, r *http.Request) {
	http.Error(w, rateLimitMessage, http.StatusTooManyRequests)
}
