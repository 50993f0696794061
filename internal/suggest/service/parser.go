package service

import (
	"encoding/json"
	"strings"
)

// SuggestionRecord is one suggested practice problem. Suggestions are
// derived data and are never persisted.
type SuggestionRecord struct {
	Title       string   `json:"title"`
	Link        string   `json:"link,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// ParseSuggestions extracts a suggestion list from raw model output.
// Models do not reliably follow the JSON-array-only instruction, so the
// parser tolerates markdown fences and surrounding prose. Any text that
// does not yield a parseable array parses as an empty list, never an
// error.
func ParseSuggestions(raw string) []SuggestionRecord {
	text := strings.TrimSpace(raw)
	if text == "" {
		return []SuggestionRecord{}
	}

	text = stripFences(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return []SuggestionRecord{}
	}

	var suggestions []SuggestionRecord
	if err := json.Unmarshal([]byte(text[start:end+1]), &suggestions); err != nil {
		return []SuggestionRecord{}
	}
	if suggestions == nil {
		return []SuggestionRecord{}
	}
	return suggestions
}

func stripFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
