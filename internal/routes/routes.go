package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/handlers"
	"github.com/BradenHooton/pixora/internal/middleware"
	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

// Handlers groups the stub API handlers
type Handlers struct {
	Auth              *handlers.AuthHandler
	EmailVerification *handlers.EmailVerificationHandler
	Conversations     *handlers.ConversationHandler
}

// Config controls the router-wide middleware
type Config struct {
	Env            string
	AllowedOrigins []string
	AuthRateLimit  middleware.RateLimitConfig
	RequestTimeout time.Duration
}

// NewRouter builds the stub backend: global middleware, health check and API routes
func NewRouter(cfg Config, h Handlers, tokenManager *auth.TokenManager, logger *slog.Logger) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env, NoStore: true}))
	router.Use(middleware.CORS(corsConfig))
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(cfg.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	RegisterRoutes(router, h, tokenManager, cfg.AuthRateLimit)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, tokenManager *auth.TokenManager, rateLimit middleware.RateLimitConfig) {
	if rateLimit.RequestsPerMinute <= 0 {
		rateLimit = middleware.DefaultAuthRateLimit()
	}
	// one budget per client across every credential endpoint
	limited := middleware.RateLimitByIP(rateLimit)

	router.With(limited).Get("/auth/google", h.Auth.GoogleOAuth)

	router.Route("/api/v1", func(r chi.Router) {
		// Public routes - no authentication required
		r.Group(func(r chi.Router) {
			r.Use(limited)

			r.Post("/auth/signin", h.Auth.SignIn)
			r.Post("/authRoutes/forgot-password", h.Auth.ForgotPassword)
			r.Post("/authRoutes/reset-password/{token}", h.Auth.ResetPassword)

			r.Post("/email/initiateEmailVerification", h.EmailVerification.Initiate)
			r.Post("/email/verifyEmailOTP", h.EmailVerification.VerifyOTP)
			r.With(auth.RequireToken(tokenManager, auth.TokenRegistration)).
				Post("/email/completeRegistration", h.EmailVerification.CompleteRegistration)
		})

		// Protected routes - access token required
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken(tokenManager, auth.TokenAccess))

			r.Get("/email/user/profile", h.Auth.Profile)

			r.Get("/conversations", h.Conversations.List)
			r.Post("/conversations/create", h.Conversations.Create)
			r.Get("/conversations/{sessionId}", h.Conversations.Get)
			r.Delete("/conversations/{sessionId}", h.Conversations.Delete)
			r.Post("/conversations/{sessionId}/message", h.Conversations.AddMessage)

			r.Post("/dashboard/generate", h.Conversations.Generate)
		})
	})
}
