package chat

import (
	"context"
	"net/http"

	"github.com/futig/kbchat-backend/internal/corpus"
	"github.com/futig/kbchat-backend/internal/entity"
)

type CorpusBinding interface {
	Current() *corpus.Snapshot
	Rebind(ctx context.Context, c entity.Corpus) (*corpus.Snapshot, error)
}

type AuthHelper interface {
	GetAuthClaimsIfEnabled(ctx context.Context, headers http.Header) (map[string]any, error)
}
