package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/handlers"
	"github.com/BradenHooton/pixora/internal/middleware"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/notify"
	"github.com/BradenHooton/pixora/internal/repositories"
	"github.com/BradenHooton/pixora/internal/routes"
	"github.com/BradenHooton/pixora/internal/services"
	"github.com/BradenHooton/pixora/internal/storage"
	pkgauth "github.com/BradenHooton/pixora/pkg/auth"
	pkglogger "github.com/BradenHooton/pixora/pkg/logger"
)

const (
	testSecret   = "test-secret-32-characters-long!!"
	imageBase    = "https://images.test/seed"
	callbackURL  = "http://127.0.0.1:3000/auth-success"
	testPassword = "lighthouse-at-dusk-42"
)

// stub runs the full backend behind an httptest server and drives it
// through the real API client
type stub struct {
	srv    *httptest.Server
	router http.Handler
	mail   *services.MemoryEmailService
	api    *apiclient.Client
	logger *slog.Logger
}

func newStub(t *testing.T, requestsPerMinute int) *stub {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)

	users := repositories.NewUserRepository()
	verifications := repositories.NewEmailVerificationRepository()
	revocations := repositories.NewTokenRevocationRepository()
	conversations := repositories.NewConversationRepository()

	tokens := auth.NewTokenManager(testSecret, auth.TokenExpiry{
		Access:       15 * time.Minute,
		Refresh:      time.Hour,
		Registration: 15 * time.Minute,
		Reset:        time.Hour,
	})
	otp := auth.NewOTPManager("Pixora", 10*time.Minute)
	hasher := pkgauth.NewHasher(bcrypt.MinCost)
	mail := services.NewMemoryEmailService()

	authService := services.NewAuthService(users, revocations, tokens, hasher, auth.TimingDelay{}, mail, logger, audit)
	verificationService := services.NewEmailVerificationService(
		verifications, users, revocations, otp, tokens, hasher, mail, logger, audit,
	)
	conversationService := services.NewConversationService(conversations, imageBase, logger)

	router := routes.NewRouter(routes.Config{
		Env:            "development",
		AllowedOrigins: []string{"http://localhost:3000"},
		AuthRateLimit:  middleware.RateLimitConfig{RequestsPerMinute: requestsPerMinute},
	}, routes.Handlers{
		Auth:              handlers.NewAuthHandler(authService, callbackURL, logger),
		EmailVerification: handlers.NewEmailVerificationHandler(verificationService, logger),
		Conversations:     handlers.NewConversationHandler(conversationService, logger),
	}, tokens, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &stub{
		srv:    srv,
		router: router,
		mail:   mail,
		api:    apiclient.New(srv.URL, apiclient.WithHTTPClient(srv.Client())),
		logger: logger,
	}
}

type client struct {
	store *storage.Memory
	nav   *flows.RecordingNavigator
	queue *notify.Queue
	deps  flows.Deps
}

func (s *stub) newClient(t *testing.T) *client {
	t.Helper()
	c := &client{
		store: storage.NewMemory(),
		nav:   &flows.RecordingNavigator{},
		queue: notify.New(notify.WithDuration(time.Hour)),
	}
	t.Cleanup(c.queue.Close)
	c.deps = flows.Deps{API: s.api, Store: c.store, Nav: c.nav, Notify: c.queue, Logger: s.logger}
	return c
}

func (c *client) lastRoute() string {
	visited := c.nav.Routes()
	if len(visited) == 0 {
		return ""
	}
	return visited[len(visited)-1]
}

func (c *client) stored(key string) string {
	v, _ := storage.Lookup(context.Background(), c.store, key)
	return v
}

// register walks the wizard end to end using the code from the outbox
func (s *stub) register(t *testing.T, c *client, email, username, password string) {
	t.Helper()
	ctx := context.Background()

	reg := flows.NewRegistration(c.deps)
	defer reg.Close()

	require.NoError(t, reg.ChooseEmail())
	require.NoError(t, reg.SubmitEmail(ctx, email))
	assert.Equal(t, flows.StepOTPVerification, reg.State().Step)

	code, ok := s.mail.LastOTP(email)
	require.True(t, ok, "an OTP should have been sent")

	require.NoError(t, reg.SubmitOTP(ctx, code))
	assert.Equal(t, flows.StepCompleteProfile, reg.State().Step)
	assert.NotEmpty(t, reg.State().TempToken)

	require.NoError(t, reg.SubmitProfile(ctx, username, password, password))
	assert.True(t, reg.State().Completed)
	assert.Equal(t, flows.RouteSignIn, c.lastRoute())
}

func (s *stub) signIn(t *testing.T, c *client, email, password string) {
	t.Helper()
	f := flows.NewSignIn(c.deps)
	defer f.Close()
	require.NoError(t, f.SubmitSignIn(context.Background(), email, password, true))
	require.Equal(t, flows.RouteDashboard, c.lastRoute())
}

func TestRegistrationThenSignIn(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()

	s.register(t, c, "new@example.com", "newbie", testPassword)
	s.signIn(t, c, "new@example.com", testPassword)

	assert.NotEmpty(t, c.stored(storage.KeyAccessToken))
	assert.NotEmpty(t, c.stored(storage.KeyRefreshToken))

	session := flows.NewSession(c.deps)
	user, err := session.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "newbie", user.Username)

	claims, err := session.AccessClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(user.ID), claims.Subject)

	profile, err := flows.NewProfile(c.deps, session).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
}

func TestRegistration_EmailAlreadyRegistered(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	s.register(t, c, "taken@example.com", "first", testPassword)

	reg := flows.NewRegistration(c.deps)
	defer reg.Close()
	require.NoError(t, reg.ChooseEmail())

	err := reg.SubmitEmail(context.Background(), "taken@example.com")
	require.Error(t, err)
	assert.Equal(t, flows.StepEmailVerification, reg.State().Step)
	assert.Equal(t, "Email already registered", reg.State().Errors[flows.FieldEmail])
}

func TestRegistration_TempTokenIsSingleUse(t *testing.T) {
	s := newStub(t, 1000)
	ctx := context.Background()

	require.NoError(t, s.api.InitiateEmailVerification(ctx, "once@example.com"))
	code, ok := s.mail.LastOTP("once@example.com")
	require.True(t, ok)

	tempToken, err := s.api.VerifyEmailOTP(ctx, models.VerifyOTPRequest{Email: "once@example.com", OTP: code})
	require.NoError(t, err)

	req := models.CompleteRegistrationRequest{Email: "once@example.com", Username: "once", Password: testPassword, ConfirmPassword: testPassword}
	require.NoError(t, s.api.CompleteRegistration(ctx, tempToken, req))

	err = s.api.CompleteRegistration(ctx, tempToken, req)
	require.Error(t, err)
	assert.Equal(t, "Verification is invalid or has already been used", apiclient.ServerMessage(err, ""))
}

func TestSignIn_WrongPassword(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	s.register(t, c, "user@example.com", "user", testPassword)

	f := flows.NewSignIn(c.deps)
	defer f.Close()

	err := f.SubmitSignIn(context.Background(), "user@example.com", "not-the-password", false)
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", f.State().Errors[flows.FieldGeneral])
	assert.Empty(t, c.stored(storage.KeyAccessToken))
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()
	s.register(t, c, "forgot@example.com", "forgetful", testPassword)

	f := flows.NewSignIn(c.deps)
	defer f.Close()
	f.ShowForgotPassword()
	require.NoError(t, f.SubmitForgotPassword(ctx, "forgot@example.com"))
	assert.Equal(t, services.ForgotPasswordMessage, f.State().Notice)

	token, ok := s.mail.LastResetToken("forgot@example.com")
	require.True(t, ok)

	const newPassword = "a-brand-new-password-7"

	reset := flows.NewPasswordReset(token, c.deps)
	defer reset.Close()
	require.NoError(t, reset.Submit(ctx, newPassword, newPassword))
	assert.Equal(t, flows.ResetSuccess, reset.State().Status)

	reused := flows.NewPasswordReset(token, c.deps)
	defer reused.Close()
	require.Error(t, reused.Submit(ctx, "yet-another-password-9", "yet-another-password-9"))
	assert.Equal(t, flows.ResetInvalid, reused.State().Status)

	s.signIn(t, s.newClient(t), "forgot@example.com", newPassword)
}

func TestForgotPassword_UnknownEmailLooksTheSame(t *testing.T) {
	s := newStub(t, 1000)

	msg, err := s.api.ForgotPassword(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, services.ForgotPasswordMessage, msg)

	_, resets := s.mail.Count()
	assert.Zero(t, resets)
}

func TestResetPassword_WeakPasswordKeepsLinkUsable(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()
	s.register(t, c, "weak@example.com", "weak", testPassword)

	_, err := s.api.ForgotPassword(ctx, "weak@example.com")
	require.NoError(t, err)
	token, ok := s.mail.LastResetToken("weak@example.com")
	require.True(t, ok)

	// passes the client's length check, fails the server's policy
	err = s.api.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "passw0rd", ConfirmPassword: "passw0rd"})
	require.Error(t, err)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)

	reset := flows.NewPasswordReset(token, c.deps)
	defer reset.Close()
	require.NoError(t, reset.Submit(ctx, "a-much-better-secret-5", "a-much-better-secret-5"))
	assert.Equal(t, flows.ResetSuccess, reset.State().Status)
}

func TestGoogleOAuthRedirectCompletesCallback(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noFollow.Get(s.api.OAuthURL())
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location.String(), callbackURL))

	cb := flows.NewCallback(c.deps)
	defer cb.Close()
	outcome, err := cb.Handle(context.Background(), location.Query())
	require.NoError(t, err)
	assert.Equal(t, flows.CallbackSignedIn, outcome)
	assert.Equal(t, flows.RouteDashboard, c.lastRoute())

	user, err := flows.NewSession(c.deps).User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.DemoOAuthEmail, user.Email)
}

func TestDashboardConversationLifecycle(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()
	s.register(t, c, "artist@example.com", "artist", testPassword)
	s.signIn(t, c, "artist@example.com", testPassword)

	session := flows.NewSession(c.deps)
	dash := flows.NewDashboard(c.deps, session)
	defer dash.Close()

	settings := models.DefaultImageSettings()
	first, err := dash.Generate(ctx, "a lighthouse at dusk", settings)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ImageURL, imageBase+"/"))
	lighthouse := dash.State().CurrentSessionID
	require.NotEmpty(t, lighthouse)

	again, err := dash.Generate(ctx, "a lighthouse at dusk", settings)
	require.NoError(t, err)
	assert.Equal(t, first.ImageURL, again.ImageURL, "same prompt and settings give the same image")
	assert.Equal(t, lighthouse, dash.State().CurrentSessionID)

	dash.NewConversation()
	_, err = dash.Generate(ctx, "a fox in the snow", settings)
	require.NoError(t, err)
	fox := dash.State().CurrentSessionID
	assert.NotEqual(t, lighthouse, fox)

	require.NoError(t, dash.LoadConversations(ctx))
	state := dash.State()
	require.Len(t, state.Conversations, 2)
	assert.Equal(t, fox, state.Conversations[0].SessionID, "most recently updated first")

	require.NoError(t, dash.Open(ctx, lighthouse))
	messages := dash.State().Messages
	require.Len(t, messages, 4)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAI, messages[3].Role)
	assert.Equal(t, first.ImageURL, messages[3].ImageURL)

	require.NoError(t, dash.Delete(ctx, lighthouse))
	require.NoError(t, dash.LoadConversations(ctx))
	require.Len(t, dash.State().Conversations, 1)
	assert.Equal(t, fox, dash.State().Conversations[0].SessionID)
}

func TestDashboard_UnsafePromptIsRefused(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	s.register(t, c, "safe@example.com", "safe", testPassword)
	s.signIn(t, c, "safe@example.com", testPassword)

	dash := flows.NewDashboard(c.deps, flows.NewSession(c.deps))
	defer dash.Close()

	_, err := dash.Generate(context.Background(), "something nsfw", models.DefaultImageSettings())
	require.Error(t, err)
	assert.Equal(t, "Generation failed: unsafe prompt", apiclient.ServerMessage(err, ""))
}

func TestDashboard_Paging(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()
	s.register(t, c, "pager@example.com", "pager", testPassword)
	s.signIn(t, c, "pager@example.com", testPassword)

	token := c.stored(storage.KeyAccessToken)
	const total = flows.PageSize + 5
	for i := range total {
		_, err := s.api.CreateConversation(ctx, token, "prompt "+string(rune('a'+i)))
		require.NoError(t, err)
	}

	dash := flows.NewDashboard(c.deps, flows.NewSession(c.deps))
	defer dash.Close()

	require.NoError(t, dash.LoadConversations(ctx))
	assert.Len(t, dash.State().Conversations, flows.PageSize)
	assert.NotEmpty(t, dash.State().NextCursor)

	require.NoError(t, dash.LoadMore(ctx))
	state := dash.State()
	assert.Len(t, state.Conversations, total)
	assert.Empty(t, state.NextCursor)

	seen := make(map[string]bool)
	for _, conv := range state.Conversations {
		assert.False(t, seen[conv.SessionID], "conversation %s listed twice", conv.SessionID)
		seen[conv.SessionID] = true
	}
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	s := newStub(t, 1000)
	ctx := context.Background()

	_, err := s.api.ListConversations(ctx, "", 10, "")
	assert.ErrorIs(t, err, apiclient.ErrSessionExpired)

	_, err = s.api.Profile(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, apiclient.ErrSessionExpired)

	// a registration token is not an access token
	require.NoError(t, s.api.InitiateEmailVerification(ctx, "mixup@example.com"))
	code, _ := s.mail.LastOTP("mixup@example.com")
	tempToken, err := s.api.VerifyEmailOTP(ctx, models.VerifyOTPRequest{Email: "mixup@example.com", OTP: code})
	require.NoError(t, err)

	_, err = s.api.Profile(ctx, tempToken)
	assert.ErrorIs(t, err, apiclient.ErrSessionExpired)
}

func TestExpiredSessionSignsOut(t *testing.T) {
	s := newStub(t, 1000)
	c := s.newClient(t)
	ctx := context.Background()
	s.register(t, c, "stale@example.com", "stale", testPassword)
	s.signIn(t, c, "stale@example.com", testPassword)

	require.NoError(t, c.store.Set(ctx, storage.KeyAccessToken, "stale-token"))

	dash := flows.NewDashboard(c.deps, flows.NewSession(c.deps))
	defer dash.Close()

	require.Error(t, dash.LoadConversations(ctx))
	assert.Equal(t, flows.RouteSignIn, c.lastRoute())
	assert.Empty(t, c.stored(storage.KeyAccessToken))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	s := newStub(t, 2)

	body := `{"email":"someone@example.com","password":"whatever-password"}`
	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, statuses)

	// the budget is shared across the auth group
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authRoutes/forgot-password", strings.NewReader(`{"email":"someone@example.com"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := newStub(t, 1000)

	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])

	missing, err := http.Get(s.srv.URL + "/api/v1/nowhere")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "application/json", missing.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", missing.Header.Get("Cache-Control"))
}
