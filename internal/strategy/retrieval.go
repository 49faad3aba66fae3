package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	oai "github.com/futig/kbchat-backend/internal/integration/openai"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// retriever runs the search half shared by both approaches.
type retriever struct {
	search Searcher
	model  ChatModel
	cfg    Config
}

func (r *retriever) retrieve(ctx context.Context, query string, o overrides, filter string) ([]entity.SearchDocument, error) {
	q := entity.SearchQuery{
		Top:      o.Top,
		Filter:   filter,
		Semantic: o.SemanticRanker,
		Captions: o.SemanticCaptions,
	}
	if o.useText() {
		q.Text = query
	}

	if o.useVectors() {
		vec, err := r.embed(ctx, query)
		if err != nil {
			return nil, err
		}
		q.Vector = vec
	}

	docs, err := r.search.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}

	ctxzap.Debug(ctx, "retrieved sources",
		zap.String("query", query),
		zap.String("retrieval_mode", o.RetrievalMode),
		zap.Int("count", len(docs)),
	)

	return docs, nil
}

func (r *retriever) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := r.model.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(r.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("compute query embedding: %w", oai.TagError(err))
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("compute query embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// sourceLines renders each hit as "sourcepage: content" on one line.
func sourceLines(docs []entity.SearchDocument, useCaptions bool) []string {
	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		text := d.Content
		if useCaptions && len(d.Captions) > 0 {
			text = strings.Join(d.Captions, " . ")
		}
		lines = append(lines, d.SourcePage+": "+noNewlines(text))
	}
	return lines
}

func noNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func lastUserMessage(messages []entity.Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == openai.ChatMessageRoleUser {
			return messages[i].Content, nil
		}
	}
	return "", fmt.Errorf("%w: a user message", entity.ErrMissingField)
}

func toOpenAIMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
