package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"algotrack/internal/common/cache"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/logger"
)

const (
	latestSuggestionsPrefix = "suggest:latest:"
	defaultSuggestionTTL    = 30 * time.Minute
)

// SuggestInput identifies the problem to find similar problems for.
type SuggestInput struct {
	Name string
	Link string
	ID   string
}

// SuggestService asks an LLM for similar practice problems. The model is
// reached through the llms.Model interface, so any OpenAI-compatible
// endpoint works and tests can substitute a fake.
type SuggestService struct {
	llm   llms.Model
	cache cache.BasicOps
	ttl   time.Duration

	// generations tracks the newest request per (user, problem). A call
	// that finishes after a newer one started must not overwrite the
	// newer result.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewSuggestService(llm llms.Model, cacheClient cache.BasicOps) *SuggestService {
	return &SuggestService{
		llm:         llm,
		cache:       cacheClient,
		ttl:         defaultSuggestionTTL,
		generations: make(map[string]uint64),
	}
}

// Suggest returns up to five problems similar to the named one. Output
// that cannot be parsed yields an empty list; only provider or transport
// failures surface as errors.
func (s *SuggestService) Suggest(ctx context.Context, userID int64, input SuggestInput) ([]SuggestionRecord, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.SuggestionTitleRequired).WithMessage("problem name is required")
	}
	if s.llm == nil {
		return nil, pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("suggestion provider is not configured")
	}

	key := suggestionKey(userID, input)
	generation := s.beginGeneration(key)

	completion, err := llms.GenerateFromSinglePrompt(ctx, s.llm, buildPrompt(input))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.SuggestionProviderError, "suggestion provider call failed")
	}

	suggestions := ParseSuggestions(completion)

	if s.isCurrentGeneration(key, generation) {
		s.cacheLatest(ctx, key, suggestions)
	}
	return suggestions, nil
}

// Latest returns the most recently cached suggestion list for the
// (user, problem) pair, or nil when nothing is cached.
func (s *SuggestService) Latest(ctx context.Context, userID int64, input SuggestInput) []SuggestionRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, suggestionKey(userID, input))
	if err != nil || raw == "" {
		return nil
	}
	var suggestions []SuggestionRecord
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		return nil
	}
	return suggestions
}

func (s *SuggestService) beginGeneration(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[key]++
	return s.generations[key]
}

func (s *SuggestService) isCurrentGeneration(key string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key] == generation
}

func (s *SuggestService) cacheLatest(ctx context.Context, key string, suggestions []SuggestionRecord) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil {
		logger.Warn(ctx, "cache suggestions failed", zap.String("key", key), zap.Error(err))
	}
}

func suggestionKey(userID int64, input SuggestInput) string {
	problem := input.ID
	if problem == "" {
		problem = strings.ToLower(strings.TrimSpace(input.Name))
	}
	return fmt.Sprintf("%s%d:%s", latestSuggestionsPrefix, userID, problem)
}

func buildPrompt(input SuggestInput) string {
	return fmt.Sprintf(`
Given the following DSA problem:
Title: %s
Link: %s
ID: %s

Suggest the top 5 similar DSA problems to practice. For each, return:
- title (string)
- link (string, if available)
- tags (array of strings, e.g. ["DP", "String"])
- description (1-line summary)
- difficulty (Easy/Medium/Hard/Unknown)

ONLY return a valid JSON array, no explanation, no markdown, no code block, just the array:
[
  {
    "title": "...",
    "link": "...",
    "tags": ["...", "..."],
    "description": "...",
    "difficulty": "..."
  }
]
`, input.Name, input.Link, input.ID)
}
