// Package strategy holds the answer-generation approaches behind a single
// Run contract. Callers only look at the Result kind, never at which
// approach produced it.
package strategy

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/sashabaranov/go-openai"
)

// Request is one conversation turn handed to a strategy.
type Request struct {
	Messages     []entity.Message
	Context      map[string]any
	SessionState json.RawMessage
	Stream       bool
}

type ResultKind int

const (
	ResultComplete ResultKind = iota
	ResultStream
)

// Result is either a complete Answer or a lazy, single-use Stream of
// fragments, depending on Kind. A stream that fails yields a non-nil error as
// its last element.
type Result struct {
	Kind   ResultKind
	Answer *entity.Answer
	Stream iter.Seq2[*entity.Fragment, error]
}

func Complete(answer *entity.Answer) *Result {
	return &Result{Kind: ResultComplete, Answer: answer}
}

func Streaming(stream iter.Seq2[*entity.Fragment, error]) *Result {
	return &Result{Kind: ResultStream, Stream: stream}
}

// Strategy is safe for concurrent use once constructed.
type Strategy interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Searcher queries the knowledge-base index a strategy is bound to.
type Searcher interface {
	Search(ctx context.Context, q entity.SearchQuery) ([]entity.SearchDocument, error)
}

// ChatModel is the subset of the OpenAI client the strategies use.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

var _ ChatModel = (*openai.Client)(nil)

// Config is the process-wide model configuration shared by both approaches.
type Config struct {
	ChatModel      string
	EmbeddingModel string
}
