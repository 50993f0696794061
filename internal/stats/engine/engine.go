// Package engine computes derived statistics over a snapshot of problem
// records. Every function is pure: no I/O, no mutation of inputs, and no
// errors given well-typed input. Timestamps that cannot be attributed to a
// calendar day are coerced to the epoch rather than rejected.
//
// All computations attribute a record to the local calendar day of its
// CreatedAt timestamp (the "effective date").
package engine

import (
	"sort"
	"time"

	"algotrack/internal/problem/model"
)

// StreakResult holds the consecutive-active-day streaks for a record set.
type StreakResult struct {
	Current int `json:"current_streak"`
	Max     int `json:"max_streak"`
}

// HeatmapCell is one calendar day of the activity heatmap.
type HeatmapCell struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Group is one bucket of a GroupBy distribution.
type Group struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// effectiveDate returns the timestamp that attributes a record to a
// calendar day. Zero timestamps coerce to the epoch.
func effectiveDate(p model.Problem) time.Time {
	if p.CreatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return p.CreatedAt
}

// dayOf truncates a timestamp to its local calendar day.
func dayOf(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// ComputeStreaks returns the current and longest consecutive-day streaks of
// active records (Solved or Attempted) as of the given day. The current
// streak is non-zero only if the most recent active day is asOf or the day
// before; an empty record set yields {0, 0}.
func ComputeStreaks(records []model.Problem, asOf time.Time) StreakResult {
	daySet := make(map[time.Time]struct{})
	for _, p := range records {
		if !p.Status.Active() {
			continue
		}
		daySet[dayOf(effectiveDate(p))] = struct{}{}
	}
	if len(daySet) == 0 {
		return StreakResult{}
	}

	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	maxStreak := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > maxStreak {
			maxStreak = run
		}
	}

	current := 0
	lastDay := days[len(days)-1]
	asOfDay := dayOf(asOf)
	if lastDay.Equal(asOfDay) || lastDay.AddDate(0, 0, 1).Equal(asOfDay) {
		current = run
	}

	return StreakResult{Current: current, Max: maxStreak}
}

// BuildHeatmap returns one cell per calendar day in the windowDays-day
// window ending at asOf (inclusive), oldest first. Each cell counts the
// Solved records whose effective day falls on it; days with no activity
// stay at zero. The result is independent of record order.
func BuildHeatmap(records []model.Problem, asOf time.Time, windowDays int) []HeatmapCell {
	if windowDays <= 0 {
		windowDays = 365
	}

	asOfDay := dayOf(asOf)
	start := asOfDay.AddDate(0, 0, -(windowDays - 1))

	cells := make([]HeatmapCell, windowDays)
	index := make(map[time.Time]int, windowDays)
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i)
		cells[i] = HeatmapCell{Date: day}
		index[day] = i
	}

	for _, p := range records {
		if p.Status != model.StatusSolved {
			continue
		}
		if i, ok := index[dayOf(effectiveDate(p))]; ok {
			cells[i].Count++
		}
	}
	return cells
}

// Dimensions accepted by GroupBy.
const (
	DimensionTopic      = "topic"
	DimensionDifficulty = "difficulty"
	DimensionStatus     = "status"
	DimensionMonth      = "month"
)

// ValidDimension reports whether GroupBy understands the dimension.
func ValidDimension(dimension string) bool {
	switch dimension {
	case DimensionTopic, DimensionDifficulty, DimensionStatus, DimensionMonth:
		return true
	}
	return false
}

// GroupBy returns {key, count} pairs for each distinct value of the
// dimension, in first-seen order. Records with an empty topic are excluded
// from topic grouping; an unknown dimension yields nil.
func GroupBy(records []model.Problem, dimension string) []Group {
	if !ValidDimension(dimension) {
		return nil
	}

	var groups []Group
	index := make(map[string]int)
	for _, p := range records {
		key := groupKey(p, dimension)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			groups[i].Count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Count: 1})
	}
	return groups
}

func groupKey(p model.Problem, dimension string) string {
	switch dimension {
	case DimensionTopic:
		return p.Topic
	case DimensionDifficulty:
		return string(p.Difficulty)
	case DimensionStatus:
		return string(p.Status)
	case DimensionMonth:
		return dayOf(effectiveDate(p)).Format("2006-01")
	}
	return ""
}

// SortByCountDesc reorders groups by descending count, preserving
// first-seen order among equal counts. Used for "topic mastery" views.
func SortByCountDesc(groups []Group) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	return sorted
}
