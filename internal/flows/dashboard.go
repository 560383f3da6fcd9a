package flows

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/pkg/logger"
)

// PageSize is how many conversations are fetched per page
const PageSize = 20

const (
	msgLoadHistoryFailed   = "Unable to load conversation history. Please refresh the page."
	msgLoadConvFailed      = "Unable to load this conversation. Please try again."
	msgLoadConvNetwork     = "Failed to load conversation. Please check your connection."
	msgDeleted             = "Conversation deleted successfully"
	msgDeleteFailed        = "Unable to delete conversation. Please try again."
	msgDeleteNetwork       = "Failed to delete conversation. Please check your connection."
	msgCreateConvFailed    = "Unable to start new conversation. Please try again."
	msgCreateConvNetwork   = "Failed to create conversation. Please check your connection."
	msgSignInToGenerate    = "Please sign in to generate images"
	msgGenerated           = "Image generated successfully!"
	msgGenerateRateLimited = "You're generating images too quickly. Please wait a moment and try again."
	msgGenerateMaintenance = "AI service is temporarily under maintenance. Please try again in a few minutes."
	msgGenerateBusy        = "AI service is temporarily busy. Please try again in a few moments."
)

type DashboardState struct {
	Conversations    []models.Conversation
	NextCursor       string
	CurrentSessionID string
	Messages         []models.Message
	LoadingList      bool
	Generating       bool
}

// Dashboard drives the conversation sidebar and the image-generation chat
type Dashboard struct {
	deps    Deps
	scope   *scope
	session *Session
	now     func() time.Time

	mu    sync.Mutex
	state DashboardState
}

func NewDashboard(deps Deps, session *Session) *Dashboard {
	deps = deps.withDefaults()
	if session == nil {
		session = NewSession(deps)
	}
	return &Dashboard{deps: deps, scope: newScope(), session: session, now: time.Now}
}

func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.Conversations = slices.Clone(d.state.Conversations)
	s.Messages = slices.Clone(d.state.Messages)
	return s
}

func (d *Dashboard) Close() {
	d.scope.close()
}

// token returns the stored access token. A missing token is ErrNotSignedIn, never an expiry.
func (d *Dashboard) token(ctx context.Context) (string, error) {
	return d.session.AccessToken(ctx)
}

// LoadConversations fetches the first page and replaces the list
func (d *Dashboard) LoadConversations(ctx context.Context) error {
	return d.loadPage(ctx, false)
}

// LoadMore appends the next page. It is a no-op without a cursor or while a page is loading.
func (d *Dashboard) LoadMore(ctx context.Context) error {
	return d.loadPage(ctx, true)
}

func (d *Dashboard) loadPage(ctx context.Context, more bool) error {
	d.mu.Lock()
	if d.scope.closed() {
		d.mu.Unlock()
		return ErrFlowClosed
	}
	if d.state.LoadingList {
		d.mu.Unlock()
		if more {
			return nil
		}
		return ErrBusy
	}
	cursor := d.state.NextCursor
	if more && cursor == "" {
		d.mu.Unlock()
		return nil
	}
	if !more {
		cursor = ""
	}
	d.state.LoadingList = true
	d.mu.Unlock()

	ctx, cancel := d.scope.bind(ctx)
	defer cancel()

	var page *models.ConversationListResponse
	token, err := d.token(ctx)
	if err == nil {
		page, err = d.deps.API.ListConversations(ctx, token, PageSize, cursor)
	}

	d.mu.Lock()
	d.state.LoadingList = false
	if d.scope.closed() {
		d.mu.Unlock()
		return ErrFlowClosed
	}
	if err == nil {
		if more {
			d.state.Conversations = append(d.state.Conversations, page.Conversations...)
		} else {
			d.state.Conversations = slices.Clone(page.Conversations)
		}
		d.state.NextCursor = page.Paging.NextCursor
	}
	d.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrNotSignedIn) || d.session.handleAuthError(ctx, err) {
			return err
		}
		d.deps.Logger.Warn("failed to load conversations", slog.String("error", err.Error()))
		d.deps.Notify.Error(msgLoadHistoryFailed)
	}
	return err
}

// Open loads a conversation's messages and makes it current
func (d *Dashboard) Open(ctx context.Context, sessionID string) error {
	if d.scope.closed() {
		return ErrFlowClosed
	}

	ctx, cancel := d.scope.bind(ctx)
	defer cancel()

	token, err := d.token(ctx)
	if err != nil {
		return err
	}

	conv, err := d.deps.API.GetConversation(ctx, token, sessionID)
	if d.scope.closed() {
		return ErrFlowClosed
	}
	if err != nil {
		if !d.session.handleAuthError(ctx, err) {
			d.deps.Notify.Error(failureMessage(err, msgLoadConvFailed, msgLoadConvNetwork))
		}
		return err
	}

	d.mu.Lock()
	d.state.Messages = slices.Clone(conv.Messages)
	d.state.CurrentSessionID = sessionID
	d.mu.Unlock()
	return nil
}

// Delete removes a conversation; the chat is cleared when it was the current one
func (d *Dashboard) Delete(ctx context.Context, sessionID string) error {
	if d.scope.closed() {
		return ErrFlowClosed
	}

	ctx, cancel := d.scope.bind(ctx)
	defer cancel()

	token, err := d.token(ctx)
	if err != nil {
		return err
	}

	err = d.deps.API.DeleteConversation(ctx, token, sessionID)
	if d.scope.closed() {
		return ErrFlowClosed
	}
	if err != nil {
		if !d.session.handleAuthError(ctx, err) {
			msg := msgDeleteFailed
			if errors.Is(err, apiclient.ErrTransport) {
				msg = msgDeleteNetwork
			}
			d.deps.Notify.Error(msg)
		}
		return err
	}

	d.mu.Lock()
	d.state.Conversations = slices.DeleteFunc(d.state.Conversations, func(c models.Conversation) bool {
		return c.SessionID == sessionID
	})
	if d.state.CurrentSessionID == sessionID {
		d.state.CurrentSessionID = ""
		d.state.Messages = nil
	}
	d.mu.Unlock()

	d.deps.Audit.LogSessionAction(ctx, logger.EventConversationDeleted, map[string]string{"session_id": sessionID})
	d.deps.Notify.Success(msgDeleted)
	return nil
}

// NewConversation clears the chat; the next Generate starts a fresh conversation
func (d *Dashboard) NewConversation() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.CurrentSessionID = ""
	d.state.Messages = nil
}

func (d *Dashboard) appendMessage(m models.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Messages = append(d.state.Messages, m)
}

// Generate sends prompt to the image model and records both sides of the exchange
func (d *Dashboard) Generate(ctx context.Context, prompt string, settings models.ImageSettings) (*models.GenerateResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	d.mu.Lock()
	if d.scope.closed() {
		d.mu.Unlock()
		return nil, ErrFlowClosed
	}
	if d.state.Generating {
		d.mu.Unlock()
		return nil, ErrBusy
	}
	d.state.Generating = true
	d.state.Messages = append(d.state.Messages, models.Message{Role: models.RoleUser, Content: prompt, Timestamp: d.now()})
	sessionID := d.state.CurrentSessionID
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.state.Generating = false
		d.mu.Unlock()
	}()

	ctx, cancel := d.scope.bind(ctx)
	defer cancel()

	resp, err := d.generate(ctx, prompt, settings, sessionID)
	if d.scope.closed() {
		return nil, ErrFlowClosed
	}
	if err != nil {
		d.reportGenerateError(ctx, err)
		return nil, err
	}

	d.appendMessage(models.Message{Role: models.RoleAI, Content: prompt, ImageURL: resp.ImageURL, Timestamp: d.now()})
	d.deps.Notify.Success(msgGenerated)
	return resp, nil
}

func (d *Dashboard) generate(ctx context.Context, prompt string, settings models.ImageSettings, sessionID string) (*models.GenerateResponse, error) {
	token, err := d.token(ctx)
	if err != nil {
		return nil, &signInRequiredError{err: err}
	}

	if sessionID == "" {
		sessionID, err = d.deps.API.CreateConversation(ctx, token, prompt)
		if err != nil {
			return nil, &conversationError{err: err}
		}
		d.mu.Lock()
		d.state.CurrentSessionID = sessionID
		d.mu.Unlock()
	} else {
		d.addMessage(ctx, token, sessionID, models.AddMessageRequest{Role: models.RoleUser, Content: prompt})
	}

	resp, err := d.deps.API.Generate(ctx, token, models.GenerateRequest{Prompt: prompt, ImageSettings: settings})
	if err != nil {
		return nil, err
	}

	d.addMessage(ctx, token, sessionID, models.AddMessageRequest{Role: models.RoleAI, Content: prompt, ImageURL: resp.ImageURL})
	return resp, nil
}

// addMessage persists a chat message. History is best effort: failures are logged only.
func (d *Dashboard) addMessage(ctx context.Context, token, sessionID string, req models.AddMessageRequest) {
	if err := d.deps.API.AddMessage(ctx, token, sessionID, req); err != nil {
		d.deps.Logger.Warn("failed to add message to conversation",
			slog.String("session_id", sessionID),
			slog.String("role", req.Role),
			slog.String("error", err.Error()),
		)
	}
}

// signInRequiredError reads as the user-facing hint while still matching ErrNotSignedIn
type signInRequiredError struct {
	err error
}

func (e *signInRequiredError) Error() string { return msgSignInToGenerate }
func (e *signInRequiredError) Unwrap() error { return e.err }

// conversationError marks a failure to start the conversation itself
type conversationError struct {
	err error
}

func (e *conversationError) Error() string { return "failed to create conversation: " + e.err.Error() }
func (e *conversationError) Unwrap() error { return e.err }

func (d *Dashboard) reportGenerateError(ctx context.Context, err error) {
	if d.session.handleAuthError(ctx, err) {
		return
	}

	var convErr *conversationError
	switch {
	case errors.As(err, &convErr):
		d.deps.Notify.Error(failureMessage(convErr.err, msgCreateConvFailed, msgCreateConvNetwork))
		return
	case errors.Is(err, apiclient.ErrRateLimited):
		d.deps.Notify.Warning(msgGenerateRateLimited)
		return
	case errors.Is(err, apiclient.ErrUnavailable) && apiclient.StatusCode(err) == http.StatusServiceUnavailable:
		d.deps.Notify.Error(msgGenerateMaintenance)
		return
	}

	friendly := apiclient.FriendlyMessage(err)
	if errors.Is(err, apiclient.ErrUnavailable) {
		friendly = msgGenerateBusy
	}
	d.deps.Logger.Warn("image generation failed", slog.String("error", err.Error()))
	d.deps.Notify.Error(friendly)
	d.appendMessage(models.Message{Role: models.RoleError, Content: friendly, Timestamp: d.now()})
}
