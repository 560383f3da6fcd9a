package apiclient

import (
	"errors"
	"net/http"
	"strings"
)

const defaultFriendlyMessage = "Something unexpected happened. Please try again."

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input and try again.",
	http.StatusUnauthorized:        "Your session has expired. Please sign in again.",
	http.StatusForbidden:           "You don't have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusTooManyRequests:     "Too many requests. Please wait a moment and try again.",
	http.StatusInternalServerError: "Something went wrong on our end. Please try again in a few minutes.",
	http.StatusBadGateway:          "Server is temporarily unavailable. Please try again later.",
	http.StatusServiceUnavailable:  "Service is under maintenance. Please try again later.",
}

// phrase substitutions applied to server messages
var phraseMessages = []struct{ phrase, message string }{
	{"Generation failed", "Failed to generate image. Please try a different prompt."},
	{"AI service busy", "AI service is currently busy. Please try again in a few moments."},
}

const (
	networkMessage   = "Unable to connect to server. Please try again later."
	malformedMessage = "Invalid response from server"
)

// FriendlyMessage maps err to text suitable for showing to the user.
// A known status wins over the server message; a rejection with an unknown
// status falls back to the server message.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindTransport:
		return networkMessage
	case KindMalformed:
		return malformedMessage
	}

	if msg, ok := statusMessages[apiErr.StatusCode]; ok {
		return msg
	}
	if apiErr.Message != "" {
		for _, p := range phraseMessages {
			if strings.Contains(apiErr.Message, p.phrase) {
				return p.message
			}
		}
		return apiErr.Message
	}
	return defaultFriendlyMessage
}
