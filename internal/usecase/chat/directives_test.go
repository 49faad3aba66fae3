package chat

import (
	"testing"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = prompts.Settings{
	prompts.CategoryCommunicationFramework: {"1": "Use SBI", "2": "Use STAR"},
	prompts.CategoryTone:                   {"1": "Friendly", "3": "Formal"},
	prompts.CategoryReadability:            {"2": "Grade 8"},
	prompts.CategoryWordCount:              {"1": "Under 100 words"},
}

// TestBuildPreamble_AllZero verifies that only the fixed sentence is added.
func TestBuildPreamble_AllZero(t *testing.T) {
	got, err := BuildPreamble(entity.PromptParameters{}, testSettings)
	require.NoError(t, err)
	assert.Equal(t, Preamble, got)
}

// TestBuildPreamble_Order verifies clauses appear in category order and zero
// selectors are skipped.
func TestBuildPreamble_Order(t *testing.T) {
	got, err := BuildPreamble(entity.PromptParameters{
		CommunicationFramework: 2,
		Tone:                   0,
		Readability:            2,
		WordCount:              1,
	}, testSettings)
	require.NoError(t, err)

	assert.Equal(t, Preamble+
		"{communication_framework_settings: Use STAR} "+
		"{readability_settings: Grade 8} "+
		"{wordcount_settings: Under 100 words} ", got)
	assert.NotContains(t, got, "tone_settings")
}

func TestBuildPreamble_UnknownSelector(t *testing.T) {
	_, err := BuildPreamble(entity.PromptParameters{Tone: 2}, testSettings)
	require.ErrorIs(t, err, entity.ErrInvalidParameter)
}

// TestInjectDirectives verifies only the first message changes.
func TestInjectDirectives(t *testing.T) {
	messages := []entity.Message{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello"},
	}

	require.NoError(t, InjectDirectives(messages, entity.PromptParameters{Tone: 3}, testSettings))

	assert.Equal(t, Preamble+"{tone_settings: Formal} Hi", messages[0].Content)
	assert.Equal(t, "Hello", messages[1].Content)
}

func TestInjectDirectives_NoMessages(t *testing.T) {
	err := InjectDirectives(nil, entity.PromptParameters{}, testSettings)
	require.ErrorIs(t, err, entity.ErrMissingField)
}
