package models

import "time"

// Message roles used in conversation history
const (
	RoleUser  = "user"
	RoleAI    = "ai"
	RoleError = "error"
)

// Conversation is one image-generation chat session
type Conversation struct {
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Messages  []Message `json:"messages,omitempty"`
}

// Message is a single entry of a conversation
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Paging carries the cursor for the next page of conversations
type Paging struct {
	NextCursor string `json:"nextCursor,omitempty"`
}

type ConversationListResponse struct {
	Envelope
	Conversations []Conversation `json:"conversations"`
	Paging        Paging         `json:"paging"`
}

type ConversationResponse struct {
	Envelope
	Conversation *Conversation `json:"conversation,omitempty"`
}

type CreateConversationRequest struct {
	Prompt string `json:"prompt"`
}

type CreateConversationResponse struct {
	Envelope
	SessionID string `json:"sessionId"`
}

type AddMessageRequest struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ImageSettings are the generation knobs exposed in the dashboard sidebar
type ImageSettings struct {
	Model   string `json:"model"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Enhance bool   `json:"enhance"`
	Safe    bool   `json:"safe"`
}

// DefaultImageSettings mirrors the dashboard's initial settings
func DefaultImageSettings() ImageSettings {
	return ImageSettings{Model: "flux", Width: 1024, Height: 1024, Enhance: true, Safe: true}
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
	ImageSettings
}

type GenerateResponse struct {
	Envelope
	ImageURL  string `json:"imageUrl"`
	HistoryID string `json:"historyId,omitempty"`
}
