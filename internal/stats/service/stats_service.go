package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/problem/model"
	"algotrack/internal/problem/repository"
	"algotrack/internal/stats/engine"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	summaryKeyPrefix  = "stats:summary:"
	defaultSummaryTTL = 2 * time.Minute
	defaultWindowDays = 365
	maxWindowDays     = 3650
)

// Summary aggregates one user's overall progress.
type Summary struct {
	Total               int     `json:"total"`
	Solved              int     `json:"solved"`
	Attempted           int     `json:"attempted"`
	Unsolved            int     `json:"unsolved"`
	SolvedPercent       float64 `json:"solved_percent"`
	CurrentStreak       int     `json:"current_streak"`
	MaxStreak           int     `json:"max_streak"`
	ActiveDaysThisMonth int     `json:"active_days_this_month"`
	ActiveDaysThisYear  int     `json:"active_days_this_year"`
}

// StatsService serves derived statistics over a user's record snapshot.
// Summaries are cached briefly; record-change events invalidate them.
type StatsService struct {
	problems repository.ProblemRepository
	cache    cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

// NewStatsService creates a new StatsService. The cache may be nil.
func NewStatsService(problems repository.ProblemRepository, cacheClient cache.Cache) *StatsService {
	return &StatsService{
		problems: problems,
		cache:    cacheClient,
		ttl:      defaultSummaryTTL,
		now:      time.Now,
	}
}

// GetSummary returns the cached or freshly computed summary for a user.
func (s *StatsService) GetSummary(ctx context.Context, userID int64) (*Summary, error) {
	if s.cache == nil {
		return s.computeSummary(ctx, userID)
	}

	summary, err := cache.GetWithCached[*Summary](
		ctx,
		s.cache,
		summaryKey(userID),
		cache.JitterTTL(s.ttl),
		cache.JitterTTL(s.ttl),
		func(summary *Summary) bool { return summary == nil },
		marshalSummary,
		unmarshalSummary,
		func(ctx context.Context) (*Summary, error) {
			return s.computeSummary(ctx, userID)
		},
	)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return &Summary{}, nil
	}
	return summary, nil
}

// GetHeatmap returns the trailing calendar heatmap for a user.
func (s *StatsService) GetHeatmap(ctx context.Context, userID int64, windowDays int) ([]engine.HeatmapCell, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if windowDays > maxWindowDays {
		return nil, pkgerrors.New(pkgerrors.InvalidParams).WithDetail("reason", "window too large")
	}

	records, err := s.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return engine.BuildHeatmap(records, s.now(), windowDays), nil
}

// GetGroups returns the distribution of records along a dimension,
// optionally sorted by descending count.
func (s *StatsService) GetGroups(ctx context.Context, userID int64, dimension string, sortByCount bool) ([]engine.Group, error) {
	if !engine.ValidDimension(dimension) {
		return nil, pkgerrors.New(pkgerrors.InvalidParams).WithDetail("reason", "unknown dimension")
	}

	records, err := s.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups := engine.GroupBy(records, dimension)
	if sortByCount {
		groups = engine.SortByCountDesc(groups)
	}
	if groups == nil {
		groups = []engine.Group{}
	}
	return groups, nil
}

// Buckets accepted by GetActivity.
const (
	BucketDay   = "day"
	BucketWeek  = "week"
	BucketMonth = "month"
)

// ActivityResult holds one activity series; exactly one field is set,
// matching the requested bucket.
type ActivityResult struct {
	Daily   []engine.DayActivity    `json:"daily,omitempty"`
	Buckets []engine.BucketActivity `json:"buckets,omitempty"`
}

// GetActivity returns the recent activity series for a bucket size.
func (s *StatsService) GetActivity(ctx context.Context, userID int64, bucket string, n int) (*ActivityResult, error) {
	records, err := s.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	switch bucket {
	case BucketDay, "":
		return &ActivityResult{Daily: engine.DailyActivity(records, asOf, n)}, nil
	case BucketWeek:
		return &ActivityResult{Buckets: engine.WeeklyActivity(records, asOf, n)}, nil
	case BucketMonth:
		return &ActivityResult{Buckets: engine.MonthlyActivity(records, asOf, n)}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.InvalidParams).WithDetail("reason", "bucket must be day, week or month")
	}
}

// InvalidateUser drops the cached summary for a user. Called by the
// record-change event consumer.
func (s *StatsService) InvalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryKey(userID)); err != nil {
		logger.Warn(ctx, "invalidate stats summary failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

// ComputeAggregates recomputes the four profile aggregate fields from a
// record snapshot. Shared with the profile recompute consumer.
func ComputeAggregates(records []model.Problem, asOf time.Time) (total, solved, currentStreak, maxStreak int) {
	total = len(records)
	for _, p := range records {
		if p.Status == model.StatusSolved {
			solved++
		}
	}
	streaks := engine.ComputeStreaks(records, asOf)
	return total, solved, streaks.Current, streaks.Max
}

func (s *StatsService) computeSummary(ctx context.Context, userID int64) (*Summary, error) {
	records, err := s.listRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	summary := &Summary{Total: len(records)}
	for _, p := range records {
		switch p.Status {
		case model.StatusSolved:
			summary.Solved++
		case model.StatusAttempted:
			summary.Attempted++
		case model.StatusUnsolved:
			summary.Unsolved++
		}
	}
	if summary.Total > 0 {
		summary.SolvedPercent = math.Round(float64(summary.Solved)/float64(summary.Total)*10000) / 100
	}

	streaks := engine.ComputeStreaks(records, asOf)
	summary.CurrentStreak = streaks.Current
	summary.MaxStreak = streaks.Max

	summary.ActiveDaysThisMonth, summary.ActiveDaysThisYear = activeDays(records, asOf)
	return summary, nil
}

func (s *StatsService) listRecords(ctx context.Context, userID int64) ([]model.Problem, error) {
	records, err := s.problems.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(fmt.Errorf("list problems failed: %w", err), pkgerrors.DatabaseError)
	}
	return records, nil
}

func activeDays(records []model.Problem, asOf time.Time) (month, year int) {
	local := asOf.Local()
	monthDays := make(map[string]struct{})
	yearDays := make(map[string]struct{})
	for _, p := range records {
		if !p.Status.Active() {
			continue
		}
		day := p.CreatedAt.Local()
		if day.Year() != local.Year() {
			continue
		}
		key := day.Format("2006-01-02")
		yearDays[key] = struct{}{}
		if day.Month() == local.Month() {
			monthDays[key] = struct{}{}
		}
	}
	return len(monthDays), len(yearDays)
}

func summaryKey(userID int64) string {
	return fmt.Sprintf("%s%d", summaryKeyPrefix, userID)
}

func marshalSummary(summary *Summary) string {
	payload, err := json.Marshal(summary)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalSummary(data string) (*Summary, error) {
	if data == "" {
		return nil, nil
	}
	var summary Summary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
