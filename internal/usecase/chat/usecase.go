package chat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/logger"
	"github.com/futig/kbchat-backend/internal/pkg/prompts"
	"github.com/futig/kbchat-backend/internal/strategy"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Usecase runs /chat and /ask turns against the bound corpus.
type Usecase struct {
	binding CorpusBinding
	auth    AuthHelper
	prompts prompts.Source
	logger  *zap.Logger
}

func NewUsecase(binding CorpusBinding, auth AuthHelper, promptSource prompts.Source, logger *zap.Logger) *Usecase {
	return &Usecase{
		binding: binding,
		auth:    auth,
		prompts: promptSource,
		logger:  logger,
	}
}

// Chat optionally rebinds the corpus, merges caller claims, injects the
// formatting directives and runs the chat strategy of the snapshot in use.
func (uc *Usecase) Chat(ctx context.Context, req *entity.ChatRequest, headers http.Header) (*strategy.Result, error) {
	selector, rebind, err := req.CorpusSelector()
	if err != nil {
		return nil, err
	}

	snap := uc.binding.Current()
	if rebind {
		snap, err = uc.binding.Rebind(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("rebind corpus: %w", err)
		}
	}
	ctx = logger.AddFields(ctx, zap.Stringer("corpus", snap.Corpus))

	reqCtx, err := uc.withClaims(ctx, req.Context, headers)
	if err != nil {
		return nil, err
	}

	settings, err := uc.prompts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prompt settings: %w", err)
	}
	if err := InjectDirectives(req.Messages, req.PromptParameters, settings); err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "running chat strategy",
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream),
	)

	return snap.Chat.Run(ctx, strategy.Request{
		Messages:     req.Messages,
		Context:      reqCtx,
		SessionState: req.SessionState,
		Stream:       req.Stream,
	})
}

// Ask runs the ask strategy of the current snapshot. It never rebinds and
// never streams.
func (uc *Usecase) Ask(ctx context.Context, req *entity.AskRequest, headers http.Header) (*strategy.Result, error) {
	snap := uc.binding.Current()
	ctx = logger.AddFields(ctx, zap.Stringer("corpus", snap.Corpus))

	reqCtx, err := uc.withClaims(ctx, req.Context, headers)
	if err != nil {
		return nil, err
	}

	res, err := snap.Ask.Run(ctx, strategy.Request{
		Messages:     req.Messages,
		Context:      reqCtx,
		SessionState: req.SessionState,
	})
	if err != nil {
		return nil, err
	}
	if res.Kind != strategy.ResultComplete {
		return nil, fmt.Errorf("ask strategy returned a stream")
	}

	return res, nil
}

func (uc *Usecase) withClaims(ctx context.Context, reqCtx map[string]any, headers http.Header) (map[string]any, error) {
	claims, err := uc.auth.GetAuthClaimsIfEnabled(ctx, headers)
	if err != nil {
		return nil, fmt.Errorf("resolve auth claims: %w", err)
	}

	if reqCtx == nil {
		reqCtx = make(map[string]any, 1)
	}
	reqCtx[entity.ContextKeyAuthClaims] = claims

	return reqCtx, nil
}
