package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/pixora/internal/database"
	"github.com/BradenHooton/pixora/internal/models"
)

// PostgresConversationRepository stores conversations per owner, with their
// messages in conversation_messages in insertion order
type PostgresConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresConversationRepository(db *database.DB) *PostgresConversationRepository {
	return &PostgresConversationRepository{pool: db.Pool}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, ownerID string, conv *models.Conversation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO conversations (owner_id, session_id, title, prompt, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, query, ownerID, conv.SessionID, conv.Title, conv.Prompt, conv.CreatedAt, conv.UpdatedAt); err != nil {
			return database.Classify(err)
		}
		for _, msg := range conv.Messages {
			if err := insertMessage(ctx, tx, ownerID, conv.SessionID, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMessage(ctx context.Context, tx pgx.Tx, ownerID, sessionID string, msg models.Message) error {
	query := `
		INSERT INTO conversation_messages (owner_id, session_id, role, content, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query, ownerID, sessionID, msg.Role, msg.Content, msg.ImageURL, msg.Timestamp)
	return database.Classify(err)
}

func (r *PostgresConversationRepository) Get(ctx context.Context, ownerID, sessionID string) (*models.Conversation, error) {
	query := `
		SELECT session_id, title, prompt, created_at, updated_at
		FROM conversations WHERE owner_id = $1 AND session_id = $2
	`

	var c models.Conversation
	err := r.pool.QueryRow(ctx, query, ownerID, sessionID).Scan(&c.SessionID, &c.Title, &c.Prompt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, database.Classify(err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT role, content, image_url, created_at
		FROM conversation_messages WHERE owner_id = $1 AND session_id = $2
		ORDER BY id
	`, ownerID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	c.Messages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var m models.Message
		err := row.Scan(&m.Role, &m.Content, &m.ImageURL, &m.Timestamp)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	if len(c.Messages) == 0 {
		c.Messages = nil
	}
	return &c, nil
}

// List returns up to limit conversations, most recently updated first,
// starting after the conversation whose id is the after cursor. The second
// return value is the cursor for the next page, empty on the last page.
// Listed conversations carry no messages.
func (r *PostgresConversationRepository) List(ctx context.Context, ownerID string, limit int, after string) ([]models.Conversation, string, error) {
	if limit <= 0 {
		return nil, "", nil
	}

	// the cursor row bounds the page; rows after it sort strictly lower
	var (
		cursorUpdated time.Time
		cursorID      = after
	)
	if after != "" {
		err := r.pool.QueryRow(ctx,
			`SELECT updated_at FROM conversations WHERE owner_id = $1 AND session_id = $2`,
			ownerID, after,
		).Scan(&cursorUpdated)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("unknown cursor: %w", models.ErrBadRequest)
		}
		if err != nil {
			return nil, "", database.Classify(err)
		}
	}

	query := `
		SELECT session_id, title, prompt, created_at, updated_at
		FROM conversations
		WHERE owner_id = $1 AND ($2 = '' OR (updated_at, session_id) < ($3::timestamptz, $2::text))
		ORDER BY updated_at DESC, session_id DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, ownerID, cursorID, cursorUpdated, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query conversations: %w", err)
	}

	page, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Conversation, error) {
		var c models.Conversation
		err := row.Scan(&c.SessionID, &c.Title, &c.Prompt, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan conversations: %w", err)
	}

	next := ""
	if len(page) > limit {
		page = page[:limit]
		next = page[len(page)-1].SessionID
	}
	return page, next, nil
}

// AppendMessage adds msg to the conversation and bumps its UpdatedAt
func (r *PostgresConversationRepository) AppendMessage(ctx context.Context, ownerID, sessionID string, msg models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = $3 WHERE owner_id = $1 AND session_id = $2`,
			ownerID, sessionID, msg.Timestamp,
		)
		if err != nil {
			return database.Classify(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return insertMessage(ctx, tx, ownerID, sessionID, msg)
	})
}

func (r *PostgresConversationRepository) Delete(ctx context.Context, ownerID, sessionID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE owner_id = $1 AND session_id = $2`,
		ownerID, sessionID,
	)
	if err != nil {
		return database.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
