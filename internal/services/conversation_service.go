package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/BradenHooton/pixora/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxTitleRunes = 50
	minImageSide  = 64
	maxImageSide  = 2048
)

// blockedTerms trip the safe-mode check of the image generator
var blockedTerms = []string{"gore", "nsfw", "nude"}

// ConversationRepository stores conversations per owner
type ConversationRepository interface {
	Create(ctx context.Context, ownerID string, conv *models.Conversation) error
	Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error)
	List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error)
	AppendMessage(ctx context.Context, ownerID, sessionID string, msg models.Message) error
	Delete(ctx context.Context, ownerID, sessionID string) error
}

// ConversationService keeps the dashboard's conversation history and stands
// in for the image generator
type ConversationService struct {
	repo         ConversationRepository
	imageBaseURL string
	logger       *slog.Logger
	now          func() time.Time
}

func NewConversationService(repo ConversationRepository, imageBaseURL string, logger *slog.Logger) *ConversationService {
	return &ConversationService{
		repo:         repo,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source (tests)
func (s *ConversationService) SetClock(now func() time.Time) {
	s.now = now
}

// List returns a page of the owner's conversations; limit is clamped to [1, MaxPageSize]
func (s *ConversationService) List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return s.repo.List(ctx, ownerID, limit, after)
}

func (s *ConversationService) Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error) {
	return s.repo.Get(ctx, ownerID, sessionID)
}

// Create starts a conversation whose first message is the prompt and
// returns its session id
func (s *ConversationService) Create(ctx context.Context, ownerID, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", models.ErrBadRequest)
	}

	now := s.now()
	conv := &models.Conversation{
		SessionID: uuid.New().String(),
		Title:     titleFor(prompt),
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []models.Message{
			{Role: models.RoleUser, Content: prompt, Timestamp: now},
		},
	}
	if err := s.repo.Create(ctx, ownerID, conv); err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	s.logger.Debug("conversation created",
		slog.String("user_id", ownerID),
		slog.String("session_id", conv.SessionID))
	return conv.SessionID, nil
}

func (s *ConversationService) AddMessage(ctx context.Context, ownerID, sessionID string, req models.AddMessageRequest) error {
	switch req.Role {
	case models.RoleUser, models.RoleAI, models.RoleError:
	default:
		return fmt.Errorf("%w: unknown role %q", models.ErrBadRequest, req.Role)
	}
	if strings.TrimSpace(req.Content) == "" && req.ImageURL == "" {
		return fmt.Errorf("%w: message is empty", models.ErrBadRequest)
	}

	return s.repo.AppendMessage(ctx, ownerID, sessionID, models.Message{
		Role:      req.Role,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		Timestamp: s.now(),
	})
}

func (s *ConversationService) Delete(ctx context.Context, ownerID, sessionID string) error {
	return s.repo.Delete(ctx, ownerID, sessionID)
}

// Generate returns a placeholder image URL. The URL is a pure function of
// the prompt and settings, so the same request yields the same image.
func (s *ConversationService) Generate(ctx context.Context, ownerID string, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", models.ErrBadRequest)
	}

	defaults := models.DefaultImageSettings()
	if req.Width == 0 {
		req.Width = defaults.Width
	}
	if req.Height == 0 {
		req.Height = defaults.Height
	}
	if req.Model == "" {
		req.Model = defaults.Model
	}
	if !validSide(req.Width) || !validSide(req.Height) {
		return nil, fmt.Errorf("%w: width and height must be between %d and %d", models.ErrBadRequest, minImageSide, maxImageSide)
	}

	if req.Safe && unsafePrompt(prompt) {
		s.logger.Info("generation refused by safe mode", slog.String("user_id", ownerID))
		return nil, models.ErrUnsafePrompt
	}

	return &models.GenerateResponse{
		Envelope:  models.Envelope{Success: true},
		ImageURL:  s.imageURL(prompt, req),
		HistoryID: uuid.New().String(),
	}, nil
}

func (s *ConversationService) imageURL(prompt string, req models.GenerateRequest) string {
	h := sha256.New()
	for _, part := range []string{prompt, req.Model, strconv.FormatBool(req.Enhance)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	seed := hex.EncodeToString(h.Sum(nil))[:16]
	return fmt.Sprintf("%s/%s/%d/%d", s.imageBaseURL, seed, req.Width, req.Height)
}

func validSide(n int) bool {
	return n >= minImageSide && n <= maxImageSide
}

func unsafePrompt(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// titleFor shortens a prompt to a sidebar title
func titleFor(prompt string) string {
	if utf8.RuneCountInString(prompt) <= maxTitleRunes {
		return prompt
	}
	runes := []rune(prompt)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}
