package engine

import (
	"testing"
	"time"

	"algotrack/internal/problem/model"
)

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 12, 0, 0, 0, time.Local)
}

func record(status model.Status, createdAt time.Time) model.Problem {
	return model.Problem{
		Title:      "two sum",
		Difficulty: model.DifficultyEasy,
		Status:     status,
		CreatedAt:  createdAt,
	}
}

func TestComputeStreaksEmpty(t *testing.T) {
	got := ComputeStreaks(nil, day(2024, 1, 10))
	if got.Current != 0 || got.Max != 0 {
		t.Fatalf("expected {0,0}, got %+v", got)
	}
}

func TestComputeStreaksConsecutiveDays(t *testing.T) {
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusAttempted, day(2024, 1, 11)),
		record(model.StatusSolved, day(2024, 1, 12)),
	}
	got := ComputeStreaks(records, day(2024, 1, 12))
	if got.Current != 3 || got.Max != 3 {
		t.Fatalf("expected {3,3}, got %+v", got)
	}
}

func TestComputeStreaksGapResets(t *testing.T) {
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 15)),
	}
	got := ComputeStreaks(records, day(2024, 1, 15))
	if got.Current != 1 || got.Max != 1 {
		t.Fatalf("expected {1,1}, got %+v", got)
	}
}

func TestComputeStreaksCurrentZeroWhenStale(t *testing.T) {
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 11)),
	}

	got := ComputeStreaks(records, day(2024, 1, 11))
	if got.Current != 2 || got.Max != 2 {
		t.Fatalf("as of last active day: expected {2,2}, got %+v", got)
	}

	// Still current one day after the last active day.
	got = ComputeStreaks(records, day(2024, 1, 12))
	if got.Current != 2 || got.Max != 2 {
		t.Fatalf("one day later: expected {2,2}, got %+v", got)
	}

	got = ComputeStreaks(records, day(2024, 1, 13))
	if got.Current != 0 || got.Max != 2 {
		t.Fatalf("two days later: expected {0,2}, got %+v", got)
	}
}

func TestComputeStreaksEndToEndScenario(t *testing.T) {
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 11)),
	}
	got := ComputeStreaks(records, day(2024, 1, 11))
	if got.Current != 2 || got.Max != 2 {
		t.Fatalf("expected {2,2}, got %+v", got)
	}

	records = append(records, record(model.StatusSolved, day(2024, 1, 20)))
	got = ComputeStreaks(records, day(2024, 1, 20))
	if got.Current != 1 || got.Max != 2 {
		t.Fatalf("expected {1,2}, got %+v", got)
	}
}

func TestComputeStreaksIgnoresUnsolved(t *testing.T) {
	records := []model.Problem{
		record(model.StatusUnsolved, day(2024, 1, 10)),
		record(model.StatusUnsolved, day(2024, 1, 11)),
	}
	got := ComputeStreaks(records, day(2024, 1, 11))
	if got.Current != 0 || got.Max != 0 {
		t.Fatalf("unsolved records should not count, got %+v", got)
	}
}

func TestComputeStreaksZeroTimestampCoerced(t *testing.T) {
	records := []model.Problem{record(model.StatusSolved, time.Time{})}
	got := ComputeStreaks(records, day(2024, 1, 10))
	if got.Current != 0 || got.Max != 1 {
		t.Fatalf("epoch-coerced record: expected {0,1}, got %+v", got)
	}
}

func TestBuildHeatmapWindowSize(t *testing.T) {
	asOf := day(2024, 6, 1)
	for _, windowDays := range []int{1, 7, 365} {
		cells := BuildHeatmap(nil, asOf, windowDays)
		if len(cells) != windowDays {
			t.Fatalf("windowDays=%d: got %d cells", windowDays, len(cells))
		}
		for _, cell := range cells {
			if cell.Count != 0 {
				t.Fatalf("empty record set produced count %d on %v", cell.Count, cell.Date)
			}
		}
		last := cells[len(cells)-1].Date
		if !last.Equal(dayOf(asOf)) {
			t.Fatalf("last cell %v, want %v", last, dayOf(asOf))
		}
	}
}

func TestBuildHeatmapCounts(t *testing.T) {
	asOf := day(2024, 1, 31)
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 20)),
		record(model.StatusAttempted, day(2024, 1, 20)), // not solved, excluded
		record(model.StatusSolved, day(2023, 1, 1)),     // outside window
	}
	cells := BuildHeatmap(records, asOf, 31)

	sum := 0
	byDay := make(map[string]int)
	for _, cell := range cells {
		sum += cell.Count
		byDay[cell.Date.Format("2006-01-02")] = cell.Count
	}
	if sum != 3 {
		t.Fatalf("sum of counts = %d, want 3", sum)
	}
	if byDay["2024-01-10"] != 2 {
		t.Fatalf("2024-01-10 count = %d, want 2", byDay["2024-01-10"])
	}
	if byDay["2024-01-20"] != 1 {
		t.Fatalf("2024-01-20 count = %d, want 1", byDay["2024-01-20"])
	}
}

func TestBuildHeatmapOrderIndependent(t *testing.T) {
	asOf := day(2024, 1, 31)
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 5)),
		record(model.StatusSolved, day(2024, 1, 15)),
		record(model.StatusSolved, day(2024, 1, 25)),
	}
	reversed := []model.Problem{records[2], records[1], records[0]}

	a := BuildHeatmap(records, asOf, 31)
	b := BuildHeatmap(reversed, asOf, 31)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGroupByTopicSkipsEmpty(t *testing.T) {
	records := []model.Problem{
		{Topic: "arrays", Status: model.StatusSolved, CreatedAt: day(2024, 1, 1)},
		{Topic: "", Status: model.StatusSolved, CreatedAt: day(2024, 1, 2)},
		{Topic: "graphs", Status: model.StatusSolved, CreatedAt: day(2024, 1, 3)},
		{Topic: "arrays", Status: model.StatusAttempted, CreatedAt: day(2024, 1, 4)},
	}
	groups := GroupBy(records, DimensionTopic)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(groups), groups)
	}
	for _, g := range groups {
		if g.Key == "" {
			t.Fatalf("empty topic key leaked into %+v", groups)
		}
	}
	if groups[0].Key != "arrays" || groups[0].Count != 2 {
		t.Fatalf("first group = %+v, want {arrays 2}", groups[0])
	}
}

func TestGroupByFirstSeenOrder(t *testing.T) {
	records := []model.Problem{
		{Difficulty: model.DifficultyHard, CreatedAt: day(2024, 1, 1)},
		{Difficulty: model.DifficultyEasy, CreatedAt: day(2024, 1, 2)},
		{Difficulty: model.DifficultyHard, CreatedAt: day(2024, 1, 3)},
	}
	groups := GroupBy(records, DimensionDifficulty)
	if len(groups) != 2 || groups[0].Key != "Hard" || groups[1].Key != "Easy" {
		t.Fatalf("unexpected order: %+v", groups)
	}
}

func TestGroupByMonth(t *testing.T) {
	records := []model.Problem{
		{Status: model.StatusSolved, CreatedAt: day(2024, 1, 10)},
		{Status: model.StatusSolved, CreatedAt: day(2024, 1, 20)},
		{Status: model.StatusSolved, CreatedAt: day(2024, 2, 1)},
	}
	groups := GroupBy(records, DimensionMonth)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(groups), groups)
	}
	if groups[0].Key != "2024-01" || groups[0].Count != 2 {
		t.Fatalf("first group = %+v, want {2024-01 2}", groups[0])
	}
}

func TestGroupByUnknownDimension(t *testing.T) {
	if groups := GroupBy([]model.Problem{{Topic: "x"}}, "color"); groups != nil {
		t.Fatalf("unknown dimension should yield nil, got %+v", groups)
	}
}

func TestSortByCountDesc(t *testing.T) {
	groups := []Group{{Key: "a", Count: 1}, {Key: "b", Count: 3}, {Key: "c", Count: 3}, {Key: "d", Count: 2}}
	sorted := SortByCountDesc(groups)
	want := []string{"b", "c", "d", "a"}
	for i, key := range want {
		if sorted[i].Key != key {
			t.Fatalf("position %d: got %s, want %s (%+v)", i, sorted[i].Key, key, sorted)
		}
	}
	// input untouched
	if groups[0].Key != "a" {
		t.Fatalf("input slice was mutated: %+v", groups)
	}
}

func TestDailyActivity(t *testing.T) {
	asOf := day(2024, 1, 7)
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 5)),
		record(model.StatusAttempted, day(2024, 1, 5)),
		record(model.StatusSolved, day(2024, 1, 7)),
		record(model.StatusUnsolved, day(2024, 1, 7)),
	}
	series := DailyActivity(records, asOf, 7)
	if len(series) != 7 {
		t.Fatalf("got %d days, want 7", len(series))
	}
	fifth := series[4] // 2024-01-05
	if fifth.Solved != 1 || fifth.Attempted != 1 {
		t.Fatalf("jan 5 = %+v, want solved 1 attempted 1", fifth)
	}
	seventh := series[6]
	if seventh.Solved != 1 || seventh.Attempted != 0 {
		t.Fatalf("jan 7 = %+v, want solved 1 attempted 0", seventh)
	}
}

func TestMonthlyActivity(t *testing.T) {
	asOf := day(2024, 3, 15)
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 3, 1)),
		record(model.StatusSolved, day(2024, 3, 10)),
	}
	series := MonthlyActivity(records, asOf, 3)
	if len(series) != 3 {
		t.Fatalf("got %d months, want 3", len(series))
	}
	if series[0].Label != "2024-01" || series[0].Solved != 1 {
		t.Fatalf("first month = %+v, want {2024-01 1}", series[0])
	}
	if series[2].Label != "2024-03" || series[2].Solved != 2 {
		t.Fatalf("last month = %+v, want {2024-03 2}", series[2])
	}
}

func TestWeeklyActivity(t *testing.T) {
	asOf := day(2024, 1, 10) // Wednesday, week of Mon Jan 8
	records := []model.Problem{
		record(model.StatusSolved, day(2024, 1, 8)),
		record(model.StatusSolved, day(2024, 1, 10)),
		record(model.StatusSolved, day(2024, 1, 3)), // previous week
	}
	series := WeeklyActivity(records, asOf, 2)
	if len(series) != 2 {
		t.Fatalf("got %d weeks, want 2", len(series))
	}
	if series[0].Solved != 1 {
		t.Fatalf("previous week = %+v, want solved 1", series[0])
	}
	if series[1].Label != "2024-01-08" || series[1].Solved != 2 {
		t.Fatalf("current week = %+v, want {2024-01-08 2}", series[1])
	}
}
