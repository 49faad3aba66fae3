package entity

import (
	"encoding/json"
	"fmt"
)

// ContextKeyAuthClaims is the request-context key strategies read caller claims from.
const ContextKeyAuthClaims = "auth_claims"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the body of POST /ask
type AskRequest struct {
	Messages     []Message       `json:"messages"`
	Context      map[string]any  `json:"context,omitempty"`
	SessionState json.RawMessage `json:"session_state,omitempty"`
}

func (r *AskRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages", ErrMissingField)
	}
	return nil
}

// PromptParameters selects formatting directives by category. Zero omits the category.
type PromptParameters struct {
	CommunicationFramework int `json:"communicationFrameworkIndex"`
	Tone                   int `json:"toneIndex"`
	Readability            int `json:"readabilityIndex"`
	WordCount              int `json:"wordCountIndex"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	AskRequest
	PromptParameters
	Stream         bool   `json:"stream"`
	AzureIndex     string `json:"azureIndex,omitempty"`
	AzureContainer string `json:"azureContainer,omitempty"`
}

// CorpusSelector returns the corpus the request asks to rebind to, if any.
// Index and container must be supplied together.
func (r *ChatRequest) CorpusSelector() (Corpus, bool, error) {
	if r.AzureIndex == "" && r.AzureContainer == "" {
		return Corpus{}, false, nil
	}
	c := Corpus{Index: r.AzureIndex, Container: r.AzureContainer}
	if err := c.Validate(); err != nil {
		return Corpus{}, false, err
	}
	return c, true, nil
}

type DataPoints struct {
	Text []string `json:"text"`
}

type AnswerContext struct {
	DataPoints        DataPoints `json:"data_points"`
	Thoughts          string     `json:"thoughts"`
	FollowupQuestions []string   `json:"followup_questions,omitempty"`
}

type AnswerChoice struct {
	Index        int             `json:"index"`
	Message      Message         `json:"message"`
	Context      AnswerContext   `json:"context"`
	SessionState json.RawMessage `json:"session_state"`
}

// Answer is a complete, non-streamed strategy result.
type Answer struct {
	Choices []AnswerChoice `json:"choices"`
}

type FragmentChoice struct {
	Index        int             `json:"index"`
	Delta        Message         `json:"delta"`
	Context      *AnswerContext  `json:"context,omitempty"`
	SessionState json.RawMessage `json:"session_state"`
	FinishReason *string         `json:"finish_reason"`
}

// Fragment is one element of a streamed answer.
type Fragment struct {
	Choices []FragmentChoice `json:"choices"`
}
