package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call
type Kind int

const (
	KindTransport      Kind = iota + 1 // request never completed
	KindRejected                       // non-2xx or success:false
	KindSessionExpired                 // 401 on an authenticated call
	KindRateLimited                    // 429
	KindUnavailable                    // 502 / 503
	KindMalformed                      // non-JSON body or missing fields
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindSessionExpired:
		return "session_expired"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	ErrTransport         = errors.New("backend unreachable")
	ErrRejected          = errors.New("request rejected")
	ErrSessionExpired    = errors.New("session expired")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnavailable       = errors.New("service unavailable")
	ErrMalformedResponse = errors.New("malformed response")
)

var kindSentinels = map[Kind]error{
	KindTransport:      ErrTransport,
	KindRejected:       ErrRejected,
	KindSessionExpired: ErrSessionExpired,
	KindRateLimited:    ErrRateLimited,
	KindUnavailable:    ErrUnavailable,
	KindMalformed:      ErrMalformedResponse,
}

// Error is returned by every Client call that does not succeed
type Error struct {
	Kind       Kind
	StatusCode int    // 0 for transport failures
	Message    string // server-supplied message, if any
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindSessionExpired
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindUnavailable
	default:
		return KindRejected
	}
}

// ServerMessage returns the backend's message for err, or fallback when
// the backend gave none (including transport failures)
func ServerMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusCode returns the HTTP status attached to err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
