package chat

import (
	"context"
	"net/http"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/strategy"
)

type ChatUsecase interface {
	Chat(ctx context.Context, req *entity.ChatRequest, headers http.Header) (*strategy.Result, error)
	Ask(ctx context.Context, req *entity.AskRequest, headers http.Header) (*strategy.Result, error)
}
