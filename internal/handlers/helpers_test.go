package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type request struct {
	method  string
	pattern string // chi route pattern, so URL params resolve
	path    string
	body    string
	claims  *auth.Claims
}

func serve(t *testing.T, h http.HandlerFunc, req request) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Method(req.method, req.pattern, h)

	r := httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
	r.Header.Set("Content-Type", "application/json")
	if req.claims != nil {
		r = r.WithContext(auth.WithClaims(r.Context(), req.claims))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func userClaims(id string) *auth.Claims {
	c := &auth.Claims{Type: auth.TokenAccess, Email: "user@example.com"}
	c.Subject = id
	return c
}
