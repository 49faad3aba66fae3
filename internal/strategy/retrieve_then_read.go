package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	oai "github.com/futig/kbchat-backend/internal/integration/openai"
	"github.com/sashabaranov/go-openai"
)

const (
	askSystemPrompt = "You are an intelligent assistant helping people answer questions about the documents in their knowledge base. " +
		"Use 'you' to refer to the individual asking the questions even if they ask with 'I'. " +
		"Answer the following question using only the data provided in the sources below. " +
		"For tabular information return it as an html table. Do not return markdown format. " +
		"Each source has a name followed by colon and the actual information, always include the source name for each fact you use in the response. " +
		"If you cannot answer using the sources below, say you don't know."

	askTemperature = 0.3
	askMaxTokens   = 1024
)

// RetrieveThenRead searches with the user's question and answers from the
// top hits in a single completion. It never streams.
type RetrieveThenRead struct {
	retriever
}

func NewRetrieveThenRead(search Searcher, model ChatModel, cfg Config) *RetrieveThenRead {
	return &RetrieveThenRead{retriever{search: search, model: model, cfg: cfg}}
}

func (s *RetrieveThenRead) Run(ctx context.Context, req Request) (*Result, error) {
	question, err := lastUserMessage(req.Messages)
	if err != nil {
		return nil, err
	}

	o := parseOverrides(req.Context)
	docs, err := s.retrieve(ctx, question, o, buildFilter(o, req.Context))
	if err != nil {
		return nil, err
	}

	sources := sourceLines(docs, o.SemanticCaptions)
	userContent := question + "\nSources:\n" + strings.Join(sources, "\n")

	resp, err := s.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: askSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		Temperature: o.temperature(askTemperature),
		MaxTokens:   askMaxTokens,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", oai.TagError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate answer: empty completion")
	}

	return Complete(&entity.Answer{
		Choices: []entity.AnswerChoice{{
			Index: 0,
			Message: entity.Message{
				Role:    openai.ChatMessageRoleAssistant,
				Content: resp.Choices[0].Message.Content,
			},
			Context: entity.AnswerContext{
				DataPoints: entity.DataPoints{Text: sources},
				Thoughts:   fmt.Sprintf("Question:<br>%s<br><br>Prompt:<br>%s", question, askSystemPrompt),
			},
			SessionState: req.SessionState,
		}},
	}), nil
}
