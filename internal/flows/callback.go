package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/pkg/logger"
)

// Query parameters of the OAuth completion redirect
const (
	ParamAccessToken  = "accessToken"
	ParamRefreshToken = "refreshToken"
	ParamUser         = "user"
)

// CallbackOutcome is the single path a callback run took
type CallbackOutcome int

const (
	CallbackPending CallbackOutcome = iota
	CallbackSignedIn
	CallbackFailed
	CallbackMalformedUser
)

func (o CallbackOutcome) String() string {
	switch o {
	case CallbackSignedIn:
		return "signed_in"
	case CallbackFailed:
		return "failed"
	case CallbackMalformedUser:
		return "malformed_user"
	default:
		return "pending"
	}
}

// Callback consumes the OAuth completion redirect. It handles exactly one
// redirect; create a new Callback for every mount.
type Callback struct {
	deps  Deps
	scope *scope

	mu      sync.Mutex
	started bool
	outcome CallbackOutcome
}

func NewCallback(deps Deps) *Callback {
	return &Callback{deps: deps.withDefaults(), scope: newScope()}
}

// Close cancels a pending dashboard navigation
func (c *Callback) Close() {
	c.scope.close()
}

func (c *Callback) Outcome() CallbackOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Handle persists the session carried by query and schedules navigation.
// Without an access token it sends the user back to sign-in with a failure marker.
func (c *Callback) Handle(ctx context.Context, query url.Values) (CallbackOutcome, error) {
	c.mu.Lock()
	if c.scope.closed() {
		c.mu.Unlock()
		return c.outcome, ErrFlowClosed
	}
	if c.started {
		c.mu.Unlock()
		return c.Outcome(), ErrAlreadyHandled
	}
	c.started = true
	c.mu.Unlock()

	outcome, err := c.handle(ctx, query)

	c.mu.Lock()
	c.outcome = outcome
	c.mu.Unlock()
	return outcome, err
}

func (c *Callback) handle(ctx context.Context, query url.Values) (CallbackOutcome, error) {
	accessToken := query.Get(ParamAccessToken)
	if accessToken == "" {
		c.fail(ctx, "missing access token", RouteSignInGoogleFailed)
		return CallbackFailed, nil
	}

	user, err := compactUser(query.Get(ParamUser))
	if err != nil {
		c.deps.Logger.Warn("oauth callback carried an undecodable user", slog.String("error", err.Error()))
		c.fail(ctx, "malformed user", RouteSignInGoogleUserInvalid)
		return CallbackMalformedUser, err
	}

	ctx, cancel := c.scope.bind(ctx)
	defer cancel()

	if err := c.persist(ctx, accessToken, query.Get(ParamRefreshToken), user); err != nil {
		if c.scope.closed() {
			return CallbackPending, ErrFlowClosed
		}
		c.deps.Logger.Error("failed to persist oauth session", slog.String("error", err.Error()))
		c.fail(ctx, "storage failure", RouteSignInGoogleFailed)
		return CallbackFailed, fmt.Errorf("failed to persist oauth session: %w", err)
	}

	c.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType: logger.EventOAuthCallback,
		Success:   true,
		Metadata:  map[string]string{"access_token": logger.TokenAttr("", accessToken).Value.String()},
	})
	c.scope.after(c.deps.Delays.CallbackDisplay, func() {
		c.deps.Nav.Navigate(RouteDashboard)
	})
	return CallbackSignedIn, nil
}

func (c *Callback) fail(ctx context.Context, reason, route string) {
	c.deps.Audit.LogAuthAttempt(ctx, logger.AuditEvent{
		EventType:     logger.EventOAuthCallback,
		FailureReason: reason,
	})
	c.deps.Nav.Navigate(route)
}

func (c *Callback) persist(ctx context.Context, accessToken, refreshToken, user string) error {
	if err := c.deps.Store.Set(ctx, storage.KeyAccessToken, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := c.deps.Store.Set(ctx, storage.KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	if user != "" {
		return c.deps.Store.Set(ctx, storage.KeyUser, user)
	}
	return nil
}

// compactUser checks that raw is a JSON object that decodes as a user and
// returns it compacted. An absent user yields "".
func compactUser(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return "", errors.Join(ErrMalformedUser, err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		return "", fmt.Errorf("%w: user must be a JSON object", ErrMalformedUser)
	}

	var user models.User
	if err := json.Unmarshal(buf.Bytes(), &user); err != nil {
		return "", errors.Join(ErrMalformedUser, err)
	}
	return buf.String(), nil
}
