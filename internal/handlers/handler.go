// Package handlers serves the stub backend's JSON API. Every response uses
// the success/message envelope the client expects.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/validation"
	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

const maxBodyBytes = 1 << 20

func ok(message string) models.Envelope {
	return models.Envelope{Success: true, Message: message}
}

// decodeJSON reads the request body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// ValidateRequest checks each form with the same rules the client applies
// and returns the first failure's message
func ValidateRequest(forms ...any) (string, bool) {
	for _, form := range forms {
		if err := validation.Struct(form); err != nil {
			var ve *validation.Error
			if errors.As(err, &ve) {
				return ve.Message, false
			}
			return "Invalid request", false
		}
	}
	return "", true
}

// detail turns an ErrBadRequest-wrapped error into a user-facing sentence
func detail(err error) string {
	msg := strings.TrimPrefix(err.Error(), models.ErrBadRequest.Error()+": ")
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return "Invalid request"
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// ownerID is the user the access token was issued to
func ownerID(r *http.Request) (string, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// writeServiceError maps the sentinel errors shared by all services; handlers
// deal with their own specific errors before falling back to it
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, detail(err))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Unauthorized")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Already exists")
	case errors.Is(err, context.Canceled):
		// client went away; nobody is reading
	default:
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
