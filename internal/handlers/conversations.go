package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/pixora/internal/models"
	pkghttp "github.com/BradenHooton/pixora/pkg/http"
)

// ConversationServiceInterface defines conversation history and generation
type ConversationServiceInterface interface {
	List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error)
	Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error)
	Create(ctx context.Context, ownerID, prompt string) (string, error)
	AddMessage(ctx context.Context, ownerID, sessionID string, req models.AddMessageRequest) error
	Delete(ctx context.Context, ownerID, sessionID string) error
	Generate(ctx context.Context, ownerID string, req models.GenerateRequest) (*models.GenerateResponse, error)
}

type ConversationHandler struct {
	service ConversationServiceInterface
	logger  *slog.Logger
}

func NewConversationHandler(service ConversationServiceInterface, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, logger: logger}
}

func (h *ConversationHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteNotFound(w, "Conversation not found")
		return
	}
	writeServiceError(w, r, h.logger, err)
}

// List handles GET /api/v1/conversations?limit&after
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			pkghttp.WriteBadRequest(w, "limit must be a positive number")
			return
		}
		limit = n
	}

	convs, next, err := h.service.List(r.Context(), owner, limit, r.URL.Query().Get("after"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, models.ConversationListResponse{
		Envelope:      ok(""),
		Conversations: convs,
		Paging:        models.Paging{NextCursor: next},
	})
}

// Get handles GET /api/v1/conversations/{sessionId}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	conv, err := h.service.Get(r.Context(), owner, chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, models.ConversationResponse{Envelope: ok(""), Conversation: conv})
}

// Create handles POST /api/v1/conversations/create
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req models.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.Create(r.Context(), owner, req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, models.CreateConversationResponse{
		Envelope:  ok("Conversation created"),
		SessionID: id,
	})
}

// AddMessage handles POST /api/v1/conversations/{sessionId}/message
func (h *ConversationHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req models.AddMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.AddMessage(r.Context(), owner, chi.URLParam(r, "sessionId"), req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ok("Message added"))
}

// Delete handles DELETE /api/v1/conversations/{sessionId}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.service.Delete(r.Context(), owner, chi.URLParam(r, "sessionId")); err != nil {
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ok("Conversation deleted"))
}

// Generate handles POST /api/v1/dashboard/generate
func (h *ConversationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	owner, found := ownerID(r)
	if !found {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Generate(r.Context(), owner, req)
	if err != nil {
		if errors.Is(err, models.ErrUnsafePrompt) {
			pkghttp.WriteUnprocessable(w, "Generation failed: unsafe prompt")
			return
		}
		h.writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
