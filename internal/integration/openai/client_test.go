package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModelNames(t *testing.T) {
	azure := config.AzureConfig{
		OpenAIHost:          "azure",
		ChatGPTModel:        "gpt-35-turbo",
		ChatGPTDeployment:   "chat",
		EmbeddingModel:      "text-embedding-3-large",
		EmbeddingDeployment: "embedding",
	}
	assert.Equal(t, "chat", ChatModelName(azure))
	assert.Equal(t, "embedding", EmbeddingModelName(azure))

	plain := azure
	plain.OpenAIHost = "openai"
	assert.Equal(t, "gpt-35-turbo", ChatModelName(plain))
	assert.Equal(t, "text-embedding-3-large", EmbeddingModelName(plain))
}

func TestNewClient_AzureRequiresCredential(t *testing.T) {
	_, err := NewClient(config.AzureConfig{OpenAIHost: "azure", OpenAIService: "svc"}, nil, zap.NewNop())
	require.ErrorIs(t, err, entity.ErrConfiguration)
}

// TestTagError_ContentFilter verifies a content_filter API error from the
// completion endpoint is tagged as entity.ErrContentFilter.
func TestTagError_ContentFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"content_filter","message":"filtered","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := goopenai.DefaultConfig("key")
	cfg.BaseURL = srv.URL
	client := goopenai.NewClientWithConfig(cfg)

	_, err := client.CreateChatCompletion(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, IsContentFilter(err))
	assert.ErrorIs(t, TagError(err), entity.ErrContentFilter)
}

func TestTagError_Passthrough(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, TagError(plain))
	assert.NoError(t, TagError(nil))

	other := &goopenai.APIError{Code: "rate_limit_exceeded", HTTPStatusCode: 429}
	assert.False(t, IsContentFilter(other))
	assert.NotErrorIs(t, TagError(other), entity.ErrContentFilter)
}
