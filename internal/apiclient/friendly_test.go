package apiclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("Please sign in to generate images"), "Please sign in to generate images"},
		{"transport", &Error{Kind: KindTransport}, "Unable to connect to server. Please try again later."},
		{"malformed", &Error{Kind: KindMalformed, StatusCode: 200}, "Invalid response from server"},
		{"expired", &Error{Kind: KindSessionExpired, StatusCode: http.StatusUnauthorized}, "Your session has expired. Please sign in again."},
		{"rate limited", &Error{Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests}, "Too many requests. Please wait a moment and try again."},
		{"bad gateway", &Error{Kind: KindUnavailable, StatusCode: http.StatusBadGateway}, "Server is temporarily unavailable. Please try again later."},
		{"status beats server message", &Error{Kind: KindRejected, StatusCode: http.StatusNotFound, Message: "no such thing"}, "The requested resource was not found."},
		{"server message for unknown status", &Error{Kind: KindRejected, StatusCode: http.StatusConflict, Message: "Email already registered"}, "Email already registered"},
		{"phrase substitution", &Error{Kind: KindRejected, StatusCode: http.StatusOK, Message: "Generation failed"}, "Failed to generate image. Please try a different prompt."},
		{"default", &Error{Kind: KindRejected, StatusCode: http.StatusTeapot}, "Something unexpected happened. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyMessage(tt.err))
		})
	}
}

func TestError_IsMatchesOnlyItsKind(t *testing.T) {
	err := &Error{Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests}

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "rate_limited")
}
