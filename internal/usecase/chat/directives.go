package chat

import (
	"fmt"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/prompts"
)

// Preamble precedes every chat question, whether or not any directive follows it.
const Preamble = "I am sending a list of parameters alongside my query. " +
	"The parameters are wrapped in curly braces and will describe the communication framework, tone, readability and wordcount of the response that is expected from you. " +
	"Under no circumstances should you make any direct mention of these parameters in your response. " +
	"My actual query will be appended at the very end, after all of the parameters. " +
	"Some or all of these parameters may not exist, ignore this initial message if that is the case. "

// BuildPreamble renders the preamble followed by one "{category: directive} "
// clause per non-zero selector, in framework, tone, readability, word-count
// order. A selector missing from settings is an entity.ErrInvalidParameter.
func BuildPreamble(params entity.PromptParameters, settings prompts.Settings) (string, error) {
	selectors := []struct {
		category string
		value    int
	}{
		{prompts.CategoryCommunicationFramework, params.CommunicationFramework},
		{prompts.CategoryTone, params.Tone},
		{prompts.CategoryReadability, params.Readability},
		{prompts.CategoryWordCount, params.WordCount},
	}

	var b strings.Builder
	b.WriteString(Preamble)

	for _, s := range selectors {
		if s.value == 0 {
			continue
		}
		text, ok := settings.Directive(s.category, s.value)
		if !ok {
			return "", fmt.Errorf("%w: no %s entry for selector %d", entity.ErrInvalidParameter, s.category, s.value)
		}
		fmt.Fprintf(&b, "{%s: %s} ", s.category, text)
	}

	return b.String(), nil
}

// InjectDirectives prefixes the first message with the rendered preamble.
func InjectDirectives(messages []entity.Message, params entity.PromptParameters, settings prompts.Settings) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages", entity.ErrMissingField)
	}

	preamble, err := BuildPreamble(params, settings)
	if err != nil {
		return err
	}

	messages[0].Content = preamble + messages[0].Content
	return nil
}
