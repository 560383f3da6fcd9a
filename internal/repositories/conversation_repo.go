package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/BradenHooton/pixora/internal/models"
)

// ConversationRepository stores conversations per owner
type ConversationRepository struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]*models.Conversation
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{byOwner: make(map[string]map[string]*models.Conversation)}
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Messages = slices.Clone(c.Messages)
	return &out
}

func (r *ConversationRepository) Create(ctx context.Context, ownerID string, conv *models.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.byOwner[ownerID]
	if owned == nil {
		owned = make(map[string]*models.Conversation)
		r.byOwner[ownerID] = owned
	}
	if _, ok := owned[conv.SessionID]; ok {
		return models.ErrConflict
	}
	owned[conv.SessionID] = cloneConversation(conv)
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byOwner[ownerID][sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneConversation(c), nil
}

// List returns up to limit conversations, most recently updated first,
// starting after the conversation whose id is the after cursor. The second
// return value is the cursor for the next page, empty on the last page.
// Listed conversations carry no messages.
func (r *ConversationRepository) List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	all := make([]models.Conversation, 0, len(r.byOwner[ownerID]))
	for _, c := range r.byOwner[ownerID] {
		summary := *c
		summary.Messages = nil
		all = append(all, summary)
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b models.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.SessionID, a.SessionID)
	})

	start := 0
	if after != "" {
		i := slices.IndexFunc(all, func(c models.Conversation) bool { return c.SessionID == after })
		if i < 0 {
			return nil, "", fmt.Errorf("unknown cursor: %w", models.ErrBadRequest)
		}
		start = i + 1
	}

	end := min(start+limit, len(all))
	page := all[start:end]

	next := ""
	if end < len(all) && len(page) > 0 {
		next = page[len(page)-1].SessionID
	}
	return page, next, nil
}

// AppendMessage adds msg to the conversation and bumps its UpdatedAt
func (r *ConversationRepository) AppendMessage(ctx context.Context, ownerID, sessionID string, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byOwner[ownerID][sessionID]
	if !ok {
		return models.ErrNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, ownerID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOwner[ownerID][sessionID]; !ok {
		return models.ErrNotFound
	}
	delete(r.byOwner[ownerID], sessionID)
	return nil
}
