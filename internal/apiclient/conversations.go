package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BradenHooton/pixora/internal/models"
)

const (
	pathConversations      = "/api/v1/conversations"
	pathCreateConversation = "/api/v1/conversations/create"
	pathGenerate           = "/api/v1/dashboard/generate"
)

func conversationPath(sessionID string) string {
	return pathConversations + "/" + url.PathEscape(sessionID)
}

// ListConversations returns one page of conversations; after is the cursor
// from the previous page, empty for the first one
func (c *Client) ListConversations(ctx context.Context, accessToken string, limit int, after string) (*models.ConversationListResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	path := pathConversations
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp models.ConversationListResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: path, token: accessToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetConversation(ctx context.Context, accessToken, sessionID string) (*models.Conversation, error) {
	path := conversationPath(sessionID)

	var resp models.ConversationResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: path, token: accessToken}, &resp); err != nil {
		return nil, err
	}
	if resp.Conversation == nil {
		return nil, c.malformed(path, http.StatusOK, "conversation")
	}
	return resp.Conversation, nil
}

// CreateConversation starts a conversation seeded with prompt and returns its session id
func (c *Client) CreateConversation(ctx context.Context, accessToken, prompt string) (string, error) {
	var resp models.CreateConversationResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathCreateConversation,
		token:  accessToken,
		body:   models.CreateConversationRequest{Prompt: prompt},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", c.malformed(pathCreateConversation, http.StatusOK, "sessionId")
	}
	return resp.SessionID, nil
}

func (c *Client) AddMessage(ctx context.Context, accessToken, sessionID string, req models.AddMessageRequest) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   conversationPath(sessionID) + "/message",
		token:  accessToken,
		body:   req,
	}, nil)
}

func (c *Client) DeleteConversation(ctx context.Context, accessToken, sessionID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: conversationPath(sessionID), token: accessToken}, nil)
}

func (c *Client) Generate(ctx context.Context, accessToken string, req models.GenerateRequest) (*models.GenerateResponse, error) {
	var resp models.GenerateResponse
	err := c.do(ctx, call{method: http.MethodPost, path: pathGenerate, token: accessToken, body: req}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ImageURL == "" {
		return nil, c.malformed(pathGenerate, http.StatusOK, "imageUrl")
	}
	return &resp, nil
}
