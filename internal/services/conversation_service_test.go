package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/repositories"
)

func newConversationService(t *testing.T) *ConversationService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConversationService(repositories.NewConversationRepository(), "https://img.test/seed/", logger)
}

func TestConversationService_CreateSeedsPrompt(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, "u1", "  a lighthouse at dusk  ")
	require.NoError(t, err)

	conv, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse at dusk", conv.Title)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, models.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "a lighthouse at dusk", conv.Messages[0].Content)

	_, err = svc.Create(ctx, "u1", "   ")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestConversationService_TitleTruncation(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	prompt := strings.Repeat("é", 80)

	id, err := svc.Create(ctx, "u1", prompt)
	require.NoError(t, err)

	conv, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 50)+"…", conv.Title)
	assert.Equal(t, prompt, conv.Prompt)
}

func TestConversationService_AddMessage(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", "prompt")
	require.NoError(t, err)

	require.NoError(t, svc.AddMessage(ctx, "u1", id, models.AddMessageRequest{Role: models.RoleAI, ImageURL: "https://img.test/1.png"}))

	tests := []struct {
		name string
		req  models.AddMessageRequest
	}{
		{"unknown role", models.AddMessageRequest{Role: "system", Content: "hi"}},
		{"empty message", models.AddMessageRequest{Role: models.RoleUser, Content: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.AddMessage(ctx, "u1", id, tt.req), models.ErrBadRequest)
		})
	}

	err = svc.AddMessage(ctx, "u1", "missing", models.AddMessageRequest{Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	conv, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestConversationService_ListClampsLimit(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range DefaultPageSize + 5 {
		svc.SetClock(func() time.Time { return base.Add(time.Duration(i) * time.Second) })
		_, err := svc.Create(ctx, "u1", "prompt")
		require.NoError(t, err)
	}

	page, next, err := svc.List(ctx, "u1", 0, "")
	require.NoError(t, err)
	assert.Len(t, page, DefaultPageSize)
	assert.NotEmpty(t, next)

	page, next, err = svc.List(ctx, "u1", 1000, "")
	require.NoError(t, err)
	assert.Len(t, page, DefaultPageSize+5)
	assert.Empty(t, next)
}

func TestConversationService_Delete(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	id, err := svc.Create(ctx, "u1", "prompt")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", id), models.ErrNotFound, "other users cannot delete it")
	require.NoError(t, svc.Delete(ctx, "u1", id))
	_, err = svc.Get(ctx, "u1", id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConversationService_GenerateIsDeterministic(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()
	req := models.GenerateRequest{Prompt: "a red fox", ImageSettings: models.DefaultImageSettings()}

	first, err := svc.Generate(ctx, "u1", req)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, "u1", req)
	require.NoError(t, err)

	assert.Equal(t, first.ImageURL, second.ImageURL)
	assert.NotEqual(t, first.HistoryID, second.HistoryID)
	assert.True(t, strings.HasPrefix(first.ImageURL, "https://img.test/seed/"))
	assert.True(t, strings.HasSuffix(first.ImageURL, "/1024/1024"))

	req.Model = "turbo"
	third, err := svc.Generate(ctx, "u1", req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ImageURL, third.ImageURL)
}

func TestConversationService_GenerateDefaultsAndBounds(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	resp, err := svc.Generate(ctx, "u1", models.GenerateRequest{Prompt: "a red fox"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.ImageURL, "/1024/1024"))

	_, err = svc.Generate(ctx, "u1", models.GenerateRequest{Prompt: "a red fox", ImageSettings: models.ImageSettings{Width: 10, Height: 512}})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Generate(ctx, "u1", models.GenerateRequest{Prompt: " "})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestConversationService_GenerateSafeMode(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	_, err := svc.Generate(ctx, "u1", models.GenerateRequest{Prompt: "NSFW poster", ImageSettings: models.ImageSettings{Safe: true}})
	assert.ErrorIs(t, err, models.ErrUnsafePrompt)

	_, err = svc.Generate(ctx, "u1", models.GenerateRequest{Prompt: "NSFW poster", ImageSettings: models.ImageSettings{Safe: false}})
	assert.NoError(t, err)
}
