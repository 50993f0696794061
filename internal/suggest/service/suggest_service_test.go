package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"

	"algotrack/internal/common/cache"
	pkgerrors "algotrack/pkg/errors"
)

type fakeModel struct {
	output string
	err    error
	calls  int
	onCall func()
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.output}},
	}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.output, f.err
}

func newSuggestCache(t *testing.T) cache.Cache {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	return c
}

func TestSuggestParsesModelOutput(t *testing.T) {
	model := &fakeModel{output: fencedOutput}
	svc := NewSuggestService(model, newSuggestCache(t))

	similar, err := svc.Suggest(context.Background(), 1, SuggestInput{Name: "Two Sum", ID: "12"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(similar) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(similar))
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}
}

func TestSuggestRequiresName(t *testing.T) {
	svc := NewSuggestService(&fakeModel{}, nil)

	_, err := svc.Suggest(context.Background(), 1, SuggestInput{Name: "   "})
	if pkgerrors.GetCode(err) != pkgerrors.SuggestionTitleRequired {
		t.Fatalf("expected SuggestionTitleRequired, got %v", err)
	}
}

func TestSuggestProviderError(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream unavailable")}
	svc := NewSuggestService(model, nil)

	_, err := svc.Suggest(context.Background(), 1, SuggestInput{Name: "Two Sum"})
	if pkgerrors.GetCode(err) != pkgerrors.SuggestionProviderError {
		t.Fatalf("expected SuggestionProviderError, got %v", err)
	}
}

func TestSuggestUnparseableIsEmptyNotError(t *testing.T) {
	model := &fakeModel{output: "I am unable to produce JSON today."}
	svc := NewSuggestService(model, newSuggestCache(t))

	similar, err := svc.Suggest(context.Background(), 1, SuggestInput{Name: "Two Sum"})
	if err != nil {
		t.Fatalf("unparseable output must not error: %v", err)
	}
	if similar == nil || len(similar) != 0 {
		t.Fatalf("expected empty slice, got %+v", similar)
	}
}

func TestSuggestCachesLatest(t *testing.T) {
	model := &fakeModel{output: fencedOutput}
	svc := NewSuggestService(model, newSuggestCache(t))
	input := SuggestInput{Name: "Two Sum", ID: "12"}

	if _, err := svc.Suggest(context.Background(), 1, input); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	cached := svc.Latest(context.Background(), 1, input)
	if len(cached) != 5 {
		t.Fatalf("expected 5 cached suggestions, got %d", len(cached))
	}
	if svc.Latest(context.Background(), 2, input) != nil {
		t.Fatal("cache must be scoped per user")
	}
}

func TestSuggestStaleResultDiscarded(t *testing.T) {
	svc := NewSuggestService(nil, newSuggestCache(t))
	input := SuggestInput{Name: "Two Sum", ID: "12"}

	// The model for the first request; while it is in flight a newer
	// request for the same problem begins, superseding it.
	model := &fakeModel{output: fencedOutput}
	model.onCall = func() {
		svc.beginGeneration(suggestionKey(1, input))
	}
	svc.llm = model

	similar, err := svc.Suggest(context.Background(), 1, input)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	// The caller still gets its result, but the cache stays untouched.
	if len(similar) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(similar))
	}
	if cached := svc.Latest(context.Background(), 1, input); cached != nil {
		t.Fatalf("stale result must not be cached, got %+v", cached)
	}
}
