package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	oai "github.com/futig/kbchat-backend/internal/integration/openai"
	"github.com/sashabaranov/go-openai"
)

const (
	queryPrompt = "Below is a history of the conversation so far, and a new question asked by the user that needs to be answered by searching in a knowledge base. " +
		"Generate a search query based on the conversation and the new question. " +
		"Do not include cited source filenames and document names e.g info.txt or doc.pdf in the search query terms. " +
		"Do not include any text inside [] or <<>> in the search query terms. " +
		"Do not include any special characters like '+'. " +
		"If the question is not in English, translate the question to English before generating the search query. " +
		"If you cannot generate a search query, return just the number 0."

	chatSystemPrompt = "Assistant helps people with questions about the documents in their knowledge base. Be brief in your answers. " +
		"Answer ONLY with the facts listed in the list of sources below. If there isn't enough information below, say you don't know. " +
		"Do not generate answers that don't use the sources below. If asking a clarifying question to the user would help, ask the question. " +
		"For tabular information return it as an html table. Do not return markdown format. " +
		"Each source has a name followed by colon and the actual information, always include the source name for each fact you use in the response. " +
		"Use square brackets to reference the source, for example [info1.txt]. Don't combine sources, list each source separately, for example [info1.txt][info2.pdf]."

	followupPrompt = "Generate 3 very brief follow-up questions that the user would likely ask next. " +
		"Enclose the follow-up questions in double angle brackets. Example:\n<<What is covered?>>\n<<Who can apply?>>\n" +
		"Do not repeat questions that have already been asked. Make sure the last question ends with \">>\"."

	queryTemperature = 0.0
	queryMaxTokens   = 100
	chatTemperature  = 0.7
	chatMaxTokens    = 1024
	maxHistory       = 20
	noQuery          = "0"
)

// ChatReadRetrieveRead rewrites the conversation into a search query,
// retrieves sources with it, then answers the latest question from those
// sources and the conversation history.
type ChatReadRetrieveRead struct {
	retriever
}

func NewChatReadRetrieveRead(search Searcher, model ChatModel, cfg Config) *ChatReadRetrieveRead {
	return &ChatReadRetrieveRead{retriever{search: search, model: model, cfg: cfg}}
}

func (s *ChatReadRetrieveRead) Run(ctx context.Context, req Request) (*Result, error) {
	question, err := lastUserMessage(req.Messages)
	if err != nil {
		return nil, err
	}

	o := parseOverrides(req.Context)
	history := trimHistory(req.Messages)

	query, err := s.generateQuery(ctx, history, question)
	if err != nil {
		return nil, err
	}

	docs, err := s.retrieve(ctx, query, o, buildFilter(o, req.Context))
	if err != nil {
		return nil, err
	}

	sources := sourceLines(docs, o.SemanticCaptions)
	system := chatSystemPrompt
	if o.SuggestFollowups && !req.Stream {
		system += "\n" + followupPrompt
	}

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}
	messages = append(messages, toOpenAIMessages(priorTurns(history))...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question + "\n\nSources:\n" + strings.Join(sources, "\n"),
	})

	completion := openai.ChatCompletionRequest{
		Model:       s.cfg.ChatModel,
		Messages:    messages,
		Temperature: o.temperature(chatTemperature),
		MaxTokens:   chatMaxTokens,
		N:           1,
	}

	answerCtx := entity.AnswerContext{
		DataPoints: entity.DataPoints{Text: sources},
		Thoughts:   fmt.Sprintf("Searched for:<br>%s", query),
	}

	if req.Stream {
		return Streaming(s.stream(ctx, completion, answerCtx, req.SessionState)), nil
	}

	resp, err := s.model.CreateChatCompletion(ctx, completion)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", oai.TagError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate answer: empty completion")
	}

	content := resp.Choices[0].Message.Content
	if o.SuggestFollowups {
		content, answerCtx.FollowupQuestions = extractFollowups(content)
	}

	return Complete(&entity.Answer{
		Choices: []entity.AnswerChoice{{
			Index: 0,
			Message: entity.Message{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			},
			Context:      answerCtx,
			SessionState: req.SessionState,
		}},
	}), nil
}

// generateQuery asks the model for a standalone search query. The question
// itself is used when the model declines.
func (s *ChatReadRetrieveRead) generateQuery(ctx context.Context, history []entity.Message, question string) (string, error) {
	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: queryPrompt}}
	messages = append(messages, toOpenAIMessages(priorTurns(history))...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Generate search query for: " + question,
	})

	resp, err := s.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.ChatModel,
		Messages:    messages,
		Temperature: wireTemperature(queryTemperature),
		MaxTokens:   queryMaxTokens,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("generate search query: %w", oai.TagError(err))
	}

	if len(resp.Choices) == 0 {
		return question, nil
	}
	query := strings.TrimSpace(resp.Choices[0].Message.Content)
	if query == "" || query == noQuery {
		return question, nil
	}
	return query, nil
}

// stream opens the completion stream on first iteration, so a rejected
// request surfaces as the first element before anything is yielded. The
// first fragment carries the answer context, the rest carry content deltas.
func (s *ChatReadRetrieveRead) stream(
	ctx context.Context,
	completion openai.ChatCompletionRequest,
	answerCtx entity.AnswerContext,
	sessionState json.RawMessage,
) iter.Seq2[*entity.Fragment, error] {
	return func(yield func(*entity.Fragment, error) bool) {
		completion.Stream = true
		stream, err := s.model.CreateChatCompletionStream(ctx, completion)
		if err != nil {
			yield(nil, fmt.Errorf("generate answer: %w", oai.TagError(err)))
			return
		}
		defer stream.Close()

		first := &entity.Fragment{Choices: []entity.FragmentChoice{{
			Index:        0,
			Delta:        entity.Message{Role: openai.ChatMessageRoleAssistant},
			Context:      &answerCtx,
			SessionState: sessionState,
		}}}
		if !yield(first, nil) {
			return
		}

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read answer stream: %w", oai.TagError(err)))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			frag := entity.FragmentChoice{
				Index: 0,
				Delta: entity.Message{
					Role:    openai.ChatMessageRoleAssistant,
					Content: choice.Delta.Content,
				},
				SessionState: sessionState,
			}
			if choice.FinishReason != "" {
				reason := string(choice.FinishReason)
				frag.FinishReason = &reason
			}

			if !yield(&entity.Fragment{Choices: []entity.FragmentChoice{frag}}, nil) {
				return
			}
		}
	}
}

// trimHistory keeps the newest messages, always ending with the latest one.
func trimHistory(messages []entity.Message) []entity.Message {
	if len(messages) <= maxHistory {
		return messages
	}
	return messages[len(messages)-maxHistory:]
}

// priorTurns drops the trailing user question, which is sent separately.
func priorTurns(history []entity.Message) []entity.Message {
	if n := len(history); n > 0 && history[n-1].Role == openai.ChatMessageRoleUser {
		return history[:n-1]
	}
	return history
}
