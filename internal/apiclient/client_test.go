package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestSignIn_SendsJSONAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/signin", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"email": "a@b.co", "password": "password1", "rememberMe": true}, body)

		writeJSON(w, http.StatusOK, `{"success":true,"accessToken":"acc","refreshToken":"ref","user":{"id":7,"name":"Ann"}}`)
	})

	resp, err := client.SignIn(context.Background(), models.SignInRequest{Email: "a@b.co", Password: "password1", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.AccessToken)
	assert.Equal(t, "ref", resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, models.UserID("7"), resp.User.ID)
	assert.JSONEq(t, `{"id":7,"name":"Ann"}`, string(resp.User.Raw))
}

func TestDo_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantIs   error
		wantMsg  string
	}{
		{"success false", http.StatusOK, `{"success":false,"message":"Invalid credentials"}`, KindRejected, ErrRejected, "Invalid credentials"},
		{"bad request", http.StatusBadRequest, `{"success":false,"message":"Token expired"}`, KindRejected, ErrRejected, "Token expired"},
		{"error field fallback", http.StatusConflict, `{"error":"duplicate"}`, KindRejected, ErrRejected, "duplicate"},
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"message":"jwt expired"}`, KindSessionExpired, ErrSessionExpired, "jwt expired"},
		{"rate limited", http.StatusTooManyRequests, `{"success":false}`, KindRateLimited, ErrRateLimited, ""},
		{"bad gateway html", http.StatusBadGateway, `<html>Bad Gateway</html>`, KindUnavailable, ErrUnavailable, ""},
		{"maintenance", http.StatusServiceUnavailable, `{"success":false,"message":"down"}`, KindUnavailable, ErrUnavailable, "down"},
		{"non json success", http.StatusOK, `OK`, KindMalformed, ErrMalformedResponse, ""},
		{"non json bad request", http.StatusBadRequest, `<html></html>`, KindMalformed, ErrMalformedResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			err := client.InitiateEmailVerification(context.Background(), "a@b.co")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL)
	err := client.InitiateEmailVerification(context.Background(), "a@b.co")

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, "fallback", ServerMessage(err, "fallback"))
}

func TestDo_CanceledContextIsNotTransportFailure(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := client.InitiateEmailVerification(ctx, "a@b.co")
	assert.True(t, IsCanceled(err))
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestVerifyEmailOTP(t *testing.T) {
	t.Run("returns temp token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body models.VerifyOTPRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.co", body.Email)
			assert.Equal(t, "123456", body.OTP)
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"tempToken":"tmp"}}`)
		})

		token, err := client.VerifyEmailOTP(context.Background(), models.VerifyOTPRequest{Email: "a@b.co", OTP: "123456"})
		require.NoError(t, err)
		assert.Equal(t, "tmp", token)
	})

	t.Run("missing temp token is malformed", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":true}`)
		})

		_, err := client.VerifyEmailOTP(context.Background(), models.VerifyOTPRequest{Email: "a@b.co", OTP: "1"})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestCompleteRegistration_SendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tmp", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/email/completeRegistration", r.URL.Path)
		writeJSON(w, http.StatusCreated, `{"success":true}`)
	})

	err := client.CompleteRegistration(context.Background(), "tmp", models.CompleteRegistrationRequest{Email: "a@b.co"})
	assert.NoError(t, err)
}

func TestResetPassword_EscapesToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/authRoutes/reset-password/a%2Fb", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	err := client.ResetPassword(context.Background(), "a/b", models.ResetPasswordRequest{Password: "p", ConfirmPassword: "p"})
	assert.NoError(t, err)
}

func TestForgotPassword_ReturnsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"message":"Check your inbox"}`)
	})

	msg, err := client.ForgotPassword(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "Check your inbox", msg)
}

func TestListConversations_Paging(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "cur1", r.URL.Query().Get("after"))
		writeJSON(w, http.StatusOK, `{"success":true,"conversations":[{"sessionId":"s1","title":"cats"}],"paging":{"nextCursor":"cur2"}}`)
	})

	resp, err := client.ListConversations(context.Background(), "acc", 20, "cur1")
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "s1", resp.Conversations[0].SessionID)
	assert.Equal(t, "cur2", resp.Paging.NextCursor)
}

func TestGenerate_SendsSettings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a cat", body["prompt"])
		assert.Equal(t, "flux", body["model"])
		assert.EqualValues(t, 1024, body["width"])
		assert.Equal(t, true, body["safe"])
		writeJSON(w, http.StatusOK, `{"success":true,"imageUrl":"https://img/1.png","historyId":"h1"}`)
	})

	resp, err := client.Generate(context.Background(), "acc", models.GenerateRequest{
		Prompt:        "a cat",
		ImageSettings: models.DefaultImageSettings(),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.png", resp.ImageURL)
}

func TestOAuthURL(t *testing.T) {
	client := New("http://localhost:4000")
	assert.Equal(t, "http://localhost:4000/auth/google", client.OAuthURL())
}
