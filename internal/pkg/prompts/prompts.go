// Package prompts loads the formatting-directive table used to steer chat answers.
package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Category keys, in the order directives are injected.
const (
	CategoryCommunicationFramework = "communication_framework_settings"
	CategoryTone                   = "tone_settings"
	CategoryReadability            = "readability_settings"
	CategoryWordCount              = "wordcount_settings"
)

// Settings maps category -> selector (as a decimal string) -> directive text.
type Settings map[string]map[string]string

// Directive returns the text registered for selector within category.
func (s Settings) Directive(category string, selector int) (string, bool) {
	byIndex, ok := s[category]
	if !ok {
		return "", false
	}
	text, ok := byIndex[fmt.Sprint(selector)]
	return text, ok
}

// Source yields a read-only snapshot of the settings.
type Source interface {
	Load(ctx context.Context) (Settings, error)
}

// FileSource re-reads a JSON file on every Load, so edits take effect without a restart.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(_ context.Context) (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read prompt settings %s: %w", s.path, err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt settings %s: %w", s.path, err)
	}

	settings := make(Settings, len(raw))
	for category, byIndex := range raw {
		texts := make(map[string]string, len(byIndex))
		for selector, v := range byIndex {
			if s, ok := v.(string); ok {
				texts[selector] = s
				continue
			}
			texts[selector] = fmt.Sprint(v)
		}
		settings[category] = texts
	}

	return settings, nil
}

// Static serves a fixed table.
type Static Settings

func (s Static) Load(_ context.Context) (Settings, error) {
	return Settings(s), nil
}
