package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"algotrack/internal/problem/model"
	"algotrack/internal/problem/repository"
	"algotrack/internal/stats/engine"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/logger"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleLen     = 255
	maxLinkLen      = 1024
	maxTopicLen     = 100
)

// ProblemService owns the record CRUD flows and the list view that runs
// through the derived-statistics engine.
type ProblemService struct {
	repo      repository.ProblemRepository
	publisher *ProblemEventPublisher
}

// NewProblemService creates a new ProblemService. The publisher may be nil;
// mutations then skip event publishing.
func NewProblemService(repo repository.ProblemRepository, publisher *ProblemEventPublisher) *ProblemService {
	return &ProblemService{repo: repo, publisher: publisher}
}

// CreateInput represents input for creating a record.
type CreateInput struct {
	Title      string
	Link       string
	Topic      string
	Difficulty string
	Status     string
}

// UpdateInput represents a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title      *string
	Link       *string
	Topic      *string
	Difficulty *string
	Status     *string
}

// ListInput represents the list query: filters, sort and pagination.
type ListInput struct {
	Search     string
	Topic      string
	Difficulty string
	Status     string
	SortBy     string
	Order      string
	Page       int
	PageSize   int
}

// ListResult is one page of filtered records plus the filtered total.
type ListResult struct {
	Items    []model.Problem
	Total    int64
	Page     int
	PageSize int
}

// CreateProblem validates and stores a new record for the user.
func (s *ProblemService) CreateProblem(ctx context.Context, userID int64, input CreateInput) (*model.Problem, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("reason", "title is required")
	}
	if len(title) > maxTitleLen || len(input.Link) > maxLinkLen || len(input.Topic) > maxTopicLen {
		return nil, pkgerrors.New(pkgerrors.InvalidParams)
	}

	difficulty := model.Difficulty(input.Difficulty)
	if difficulty == "" {
		difficulty = model.DifficultyEasy
	}
	if !difficulty.Valid() {
		return nil, pkgerrors.New(pkgerrors.InvalidDifficulty)
	}
	status := model.Status(input.Status)
	if status == "" {
		status = model.StatusUnsolved
	}
	if !status.Valid() {
		return nil, pkgerrors.New(pkgerrors.InvalidStatus)
	}

	problem := &model.Problem{
		UserID:     userID,
		Title:      title,
		Link:       strings.TrimSpace(input.Link),
		Topic:      strings.TrimSpace(input.Topic),
		Difficulty: difficulty,
		Status:     status,
	}

	id, err := s.repo.Create(ctx, nil, problem)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("create problem failed: %w", err), pkgerrors.ProblemCreateFailed)
	}

	created, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("load created problem failed: %w", err), pkgerrors.DatabaseError)
	}

	s.publishEvent(ctx, model.ProblemEventCreated, created.ID, userID)
	return created, nil
}

// GetProblem returns one record after an ownership check.
func (s *ProblemService) GetProblem(ctx context.Context, userID, problemID int64) (*model.Problem, error) {
	return s.getOwned(ctx, userID, problemID)
}

// ListProblems returns the user's records filtered and sorted through the
// stats engine, then paginated. Default order is creation time descending.
func (s *ProblemService) ListProblems(ctx context.Context, userID int64, input ListInput) (ListResult, error) {
	if err := validateListInput(&input); err != nil {
		return ListResult{}, err
	}

	records, err := s.repo.ListByUser(ctx, nil, userID)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(fmt.Errorf("list problems failed: %w", err), pkgerrors.DatabaseError)
	}

	filter := engine.Filter{
		Search:     input.Search,
		Topic:      input.Topic,
		Difficulty: input.Difficulty,
		Status:     input.Status,
	}
	filtered := engine.FilterAndSort(records, filter, input.SortBy, input.Order)

	total := int64(len(filtered))
	start := (input.Page - 1) * input.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + input.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return ListResult{
		Items:    filtered[start:end],
		Total:    total,
		Page:     input.Page,
		PageSize: input.PageSize,
	}, nil
}

// UpdateProblem applies a partial update after an ownership check.
func (s *ProblemService) UpdateProblem(ctx context.Context, userID, problemID int64, input UpdateInput) (*model.Problem, error) {
	problem, err := s.getOwned(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("reason", "title is required")
		}
		if len(title) > maxTitleLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams)
		}
		problem.Title = title
	}
	if input.Link != nil {
		if len(*input.Link) > maxLinkLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams)
		}
		problem.Link = strings.TrimSpace(*input.Link)
	}
	if input.Topic != nil {
		if len(*input.Topic) > maxTopicLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams)
		}
		problem.Topic = strings.TrimSpace(*input.Topic)
	}
	if input.Difficulty != nil {
		difficulty := model.Difficulty(*input.Difficulty)
		if !difficulty.Valid() {
			return nil, pkgerrors.New(pkgerrors.InvalidDifficulty)
		}
		problem.Difficulty = difficulty
	}
	if input.Status != nil {
		status := model.Status(*input.Status)
		if !status.Valid() {
			return nil, pkgerrors.New(pkgerrors.InvalidStatus)
		}
		problem.Status = status
	}

	if err := s.repo.Update(ctx, nil, problem); err != nil {
		if stderrors.Is(err, repository.ErrProblemNotFound) {
			return nil, pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("update problem failed: %w", err), pkgerrors.ProblemUpdateFailed)
	}
	problem.UpdatedAt = time.Now()

	s.publishEvent(ctx, model.ProblemEventUpdated, problem.ID, userID)
	return problem, nil
}

// DeleteProblem removes a record after an ownership check.
func (s *ProblemService) DeleteProblem(ctx context.Context, userID, problemID int64) error {
	if _, err := s.getOwned(ctx, userID, problemID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, nil, problemID); err != nil {
		if stderrors.Is(err, repository.ErrProblemNotFound) {
			return pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return pkgerrors.Wrap(fmt.Errorf("delete problem failed: %w", err), pkgerrors.ProblemDeleteFailed)
	}

	s.publishEvent(ctx, model.ProblemEventDeleted, problemID, userID)
	return nil
}

// ExportProblems returns the user's full record list as zstd-compressed JSON.
func (s *ProblemService) ExportProblems(ctx context.Context, userID int64) ([]byte, error) {
	records, err := s.repo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list problems failed: %w", err), pkgerrors.DatabaseError)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("marshal export failed: %w", err), pkgerrors.ExportFailed)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("create zstd encoder failed: %w", err), pkgerrors.ExportFailed)
	}
	defer encoder.Close()

	return encoder.EncodeAll(payload, nil), nil
}

func (s *ProblemService) getOwned(ctx context.Context, userID, problemID int64) (*model.Problem, error) {
	problem, err := s.repo.GetByID(ctx, nil, problemID)
	if err != nil {
		if stderrors.Is(err, repository.ErrProblemNotFound) {
			return nil, pkgerrors.New(pkgerrors.ProblemNotFound)
		}
		return nil, pkgerrors.Wrap(fmt.Errorf("get problem failed: %w", err), pkgerrors.DatabaseError)
	}
	if problem.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.ProblemAccessDenied)
	}
	return problem, nil
}

// publishEvent is best-effort: a failed publish is logged, never surfaced,
// so record mutations do not depend on the broker being up.
func (s *ProblemService) publishEvent(ctx context.Context, eventType model.ProblemEventType, problemID, userID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, problemID, userID); err != nil {
		logger.Warn(ctx, "publish problem event failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("problem_id", problemID),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func validateListInput(input *ListInput) error {
	if input.Difficulty != "" && input.Difficulty != engine.FilterAll {
		if !model.Difficulty(input.Difficulty).Valid() {
			return pkgerrors.New(pkgerrors.InvalidDifficulty)
		}
	}
	if input.Status != "" && input.Status != engine.FilterAll {
		if !model.Status(input.Status).Valid() {
			return pkgerrors.New(pkgerrors.InvalidStatus)
		}
	}
	if input.SortBy == "" {
		input.SortBy = engine.SortByCreatedAt
		if input.Order == "" {
			input.Order = engine.OrderDesc
		}
	}
	if !engine.ValidSortKey(input.SortBy) {
		return pkgerrors.New(pkgerrors.InvalidSortKey)
	}
	if input.Order == "" {
		input.Order = engine.OrderAsc
	}
	if input.Order != engine.OrderAsc && input.Order != engine.OrderDesc {
		return pkgerrors.New(pkgerrors.InvalidParams).WithDetail("reason", "order must be asc or desc")
	}
	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PageSize <= 0 {
		input.PageSize = defaultPageSize
	}
	if input.PageSize > maxPageSize {
		input.PageSize = maxPageSize
	}
	return nil
}
