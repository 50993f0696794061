package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"algotrack/internal/common/db"
	"algotrack/internal/common/mq"
	"algotrack/internal/problem/model"
	"algotrack/internal/problem/repository"
	pkgerrors "algotrack/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

type fakeProblemRepo struct {
	nextID   int64
	problems map[int64]*model.Problem
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{nextID: 1, problems: make(map[int64]*model.Problem)}
}

func (f *fakeProblemRepo) Create(_ context.Context, _ db.Transaction, problem *model.Problem) (int64, error) {
	stored := *problem
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.problems[stored.ID] = &stored
	f.nextID++
	return stored.ID, nil
}

func (f *fakeProblemRepo) GetByID(_ context.Context, _ db.Transaction, problemID int64) (*model.Problem, error) {
	problem, ok := f.problems[problemID]
	if !ok {
		return nil, repository.ErrProblemNotFound
	}
	copied := *problem
	return &copied, nil
}

func (f *fakeProblemRepo) ListByUser(_ context.Context, _ db.Transaction, userID int64) ([]model.Problem, error) {
	var out []model.Problem
	for id := f.nextID - 1; id >= 1; id-- {
		if problem, ok := f.problems[id]; ok && problem.UserID == userID {
			out = append(out, *problem)
		}
	}
	return out, nil
}

func (f *fakeProblemRepo) Update(_ context.Context, _ db.Transaction, problem *model.Problem) error {
	if _, ok := f.problems[problem.ID]; !ok {
		return repository.ErrProblemNotFound
	}
	copied := *problem
	f.problems[problem.ID] = &copied
	return nil
}

func (f *fakeProblemRepo) Delete(_ context.Context, _ db.Transaction, problemID int64) error {
	if _, ok := f.problems[problemID]; !ok {
		return repository.ErrProblemNotFound
	}
	delete(f.problems, problemID)
	return nil
}

type fakeQueue struct {
	published []*mq.Message
	topics    []string
}

func (f *fakeQueue) Publish(_ context.Context, topic string, message *mq.Message) error {
	f.published = append(f.published, message)
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeQueue) Subscribe(context.Context, string, mq.HandlerFunc) error {
	return nil
}

func (f *fakeQueue) SubscribeWithOptions(context.Context, string, mq.HandlerFunc, *mq.SubscribeOptions) error {
	return nil
}

func (f *fakeQueue) Start() error               { return nil }
func (f *fakeQueue) Stop() error                { return nil }
func (f *fakeQueue) Ping(context.Context) error { return nil }
func (f *fakeQueue) Close() error               { return nil }

func newTestService() (*ProblemService, *fakeProblemRepo, *fakeQueue) {
	repo := newFakeProblemRepo()
	queue := &fakeQueue{}
	publisher := NewProblemEventPublisher(queue, "")
	return NewProblemService(repo, publisher), repo, queue
}

func TestCreateProblemDefaults(t *testing.T) {
	svc, _, queue := newTestService()

	problem, err := svc.CreateProblem(context.Background(), 7, CreateInput{Title: "  Two Sum  "})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if problem.Title != "Two Sum" {
		t.Fatalf("title not trimmed: %q", problem.Title)
	}
	if problem.Difficulty != model.DifficultyEasy || problem.Status != model.StatusUnsolved {
		t.Fatalf("defaults not applied: %+v", problem)
	}

	if len(queue.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(queue.published))
	}
	var event model.ProblemEvent
	if err := json.Unmarshal(queue.published[0].Body, &event); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if event.EventType != model.ProblemEventCreated || event.UserID != 7 {
		t.Fatalf("unexpected event %+v", event)
	}
	if queue.published[0].PartitionKey != "7" {
		t.Fatalf("partition key = %q, want user id", queue.published[0].PartitionKey)
	}
}

func TestCreateProblemValidation(t *testing.T) {
	svc, _, _ := newTestService()
	cases := []struct {
		name  string
		input CreateInput
		code  pkgerrors.ErrorCode
	}{
		{"missing title", CreateInput{}, pkgerrors.RequiredFieldEmpty},
		{"bad difficulty", CreateInput{Title: "x", Difficulty: "Impossible"}, pkgerrors.InvalidDifficulty},
		{"bad status", CreateInput{Title: "x", Status: "Done"}, pkgerrors.InvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProblem(context.Background(), 1, tc.input)
			if pkgerrors.GetCode(err) != tc.code {
				t.Fatalf("got %v, want code %d", err, tc.code)
			}
		})
	}
}

func TestUpdateProblemOwnerCheck(t *testing.T) {
	svc, _, _ := newTestService()
	problem, err := svc.CreateProblem(context.Background(), 1, CreateInput{Title: "x"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	title := "y"
	_, err = svc.UpdateProblem(context.Background(), 2, problem.ID, UpdateInput{Title: &title})
	if pkgerrors.GetCode(err) != pkgerrors.ProblemAccessDenied {
		t.Fatalf("expected access denied, got %v", err)
	}

	if err := svc.DeleteProblem(context.Background(), 2, problem.ID); pkgerrors.GetCode(err) != pkgerrors.ProblemAccessDenied {
		t.Fatalf("expected access denied on delete, got %v", err)
	}
}

func TestUpdateProblemPartial(t *testing.T) {
	svc, _, queue := newTestService()
	problem, err := svc.CreateProblem(context.Background(), 1, CreateInput{Title: "x", Topic: "arrays"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	status := "Solved"
	updated, err := svc.UpdateProblem(context.Background(), 1, problem.ID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != model.StatusSolved {
		t.Fatalf("status not updated: %+v", updated)
	}
	if updated.Topic != "arrays" || updated.Title != "x" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if len(queue.published) != 2 {
		t.Fatalf("expected create+update events, got %d", len(queue.published))
	}
}

func TestListProblemsFilterSortPaginate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	titles := []string{"Two Sum", "Course Schedule", "Three Sum", "Word Ladder"}
	for _, title := range titles {
		if _, err := svc.CreateProblem(ctx, 1, CreateInput{Title: title}); err != nil {
			t.Fatalf("create %q failed: %v", title, err)
		}
	}

	result, err := svc.ListProblems(ctx, 1, ListInput{Search: "sum", SortBy: "title", Order: "asc"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Fatalf("got %d/%d, want 2 matches", len(result.Items), result.Total)
	}
	if result.Items[0].Title != "Three Sum" || result.Items[1].Title != "Two Sum" {
		t.Fatalf("unexpected order: %+v", result.Items)
	}

	page, err := svc.ListProblems(ctx, 1, ListInput{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("list page 2 failed: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 1 {
		t.Fatalf("page 2: got %d items of total %d", len(page.Items), page.Total)
	}

	if _, err := svc.ListProblems(ctx, 1, ListInput{SortBy: "bogus"}); pkgerrors.GetCode(err) != pkgerrors.InvalidSortKey {
		t.Fatalf("expected invalid sort key, got %v", err)
	}
}

func TestListProblemsScopedToUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateProblem(ctx, 1, CreateInput{Title: "mine"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateProblem(ctx, 2, CreateInput{Title: "theirs"}); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ListProblems(ctx, 1, ListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 || result.Items[0].Title != "mine" {
		t.Fatalf("leaked records across users: %+v", result.Items)
	}
}

func TestExportProblemsRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateProblem(ctx, 1, CreateInput{Title: "Two Sum", Status: "Solved"}); err != nil {
		t.Fatal(err)
	}

	compressed, err := svc.ExportProblems(ctx, 1)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer decoder.Close()
	payload, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}

	var records []model.Problem
	if err := json.Unmarshal(payload, &records); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(records) != 1 || records[0].Title != "Two Sum" {
		t.Fatalf("unexpected export contents: %+v", records)
	}
}
