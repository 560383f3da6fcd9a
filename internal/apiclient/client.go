// Package apiclient is the HTTP client for the remote authentication and
// image-generation backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 1 << 20

// Client issues one request per call and never retries
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a client-side timeout; zero leaves only the caller's context
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the backend at baseURL (no trailing slash)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method string
	path   string
	token  string // bearer credential, empty for anonymous calls
	body   any
}

// do performs the call and decodes a successful body into out.
// Every failure is returned as *Error.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var reqBody io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a cancelled caller is not a transport fault
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("backend call",
		slog.String("method", cl.method),
		slog.String("path", cl.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return c.decode(cl, resp.StatusCode, raw, out)
}

func (c *Client) decode(cl call, status int, raw []byte, out any) error {
	ok := status >= 200 && status < 300

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if !ok {
			if kind := kindForStatus(status); kind != KindRejected {
				return &Error{Kind: kind, StatusCode: status, Err: err}
			}
		}
		c.logger.Warn("malformed backend response",
			slog.String("path", cl.path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return &Error{Kind: KindMalformed, StatusCode: status, Err: err}
	}

	message := env.Message
	if message == "" {
		message = env.Error
	}

	if !ok {
		return &Error{Kind: kindForStatus(status), StatusCode: status, Message: message}
	}
	if !env.Success {
		return &Error{Kind: KindRejected, StatusCode: status, Message: message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.logger.Warn("malformed backend response",
				slog.String("path", cl.path),
				slog.String("error", err.Error()),
			)
			return &Error{Kind: KindMalformed, StatusCode: status, Err: err}
		}
	}
	return nil
}

// malformed reports a successful response that lacks a required field
func (c *Client) malformed(path string, status int, field string) error {
	c.logger.Warn("backend response missing field",
		slog.String("path", path),
		slog.String("field", field),
	)
	return &Error{
		Kind:       KindMalformed,
		StatusCode: status,
		Err:        fmt.Errorf("%w: missing %s", ErrMalformedResponse, field),
	}
}

// IsCanceled reports whether err came from the caller's context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
