package engine

import (
	"testing"
	"time"

	"algotrack/internal/problem/model"
)

func sample() []model.Problem {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	return []model.Problem{
		{ID: 1, Title: "Two Sum", Topic: "arrays", Difficulty: model.DifficultyEasy, Status: model.StatusSolved, CreatedAt: at},
		{ID: 2, Title: "Course Schedule", Topic: "graphs", Difficulty: model.DifficultyMedium, Status: model.StatusAttempted, CreatedAt: at.AddDate(0, 0, 1)},
		{ID: 3, Title: "Median of Arrays", Topic: "binary search", Difficulty: model.DifficultyHard, Status: model.StatusUnsolved, CreatedAt: at.AddDate(0, 0, 2)},
		{ID: 4, Title: "Three Sum", Topic: "arrays", Difficulty: model.DifficultyMedium, Status: model.StatusSolved, CreatedAt: at.AddDate(0, 0, 3)},
	}
}

func ids(records []model.Problem) []int64 {
	out := make([]int64, len(records))
	for i, p := range records {
		out[i] = p.ID
	}
	return out
}

func TestFilterSearchCaseInsensitive(t *testing.T) {
	cases := []struct {
		name   string
		search string
		want   []int64
	}{
		{"title match", "sum", []int64{1, 4}},
		{"uppercase query", "SUM", []int64{1, 4}},
		{"topic match", "graph", []int64{2}},
		{"no match", "zzz", nil},
		{"empty matches all", "", []int64{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterAndSort(sample(), Filter{Search: tc.search}, "", ""))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestFilterAllSentinel(t *testing.T) {
	got := FilterAndSort(sample(), Filter{Topic: FilterAll, Difficulty: FilterAll, Status: FilterAll}, "", "")
	if len(got) != 4 {
		t.Fatalf("All sentinel should match everything, got %d records", len(got))
	}
}

func TestFilterConjunction(t *testing.T) {
	filter := Filter{Topic: "arrays", Status: "Solved", Difficulty: "Medium"}
	got := ids(FilterAndSort(sample(), filter, "", ""))
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("got %v, want [4]", got)
	}
}

func TestSortByDifficultyRank(t *testing.T) {
	got := ids(FilterAndSort(sample(), Filter{}, SortByDifficulty, OrderAsc))
	want := []int64{1, 2, 4, 3} // Easy, Medium, Medium (stable), Hard
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	got = ids(FilterAndSort(sample(), Filter{}, SortByDifficulty, OrderDesc))
	want = []int64{3, 2, 4, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("desc: got %v, want %v", got, want)
		}
	}
}

func TestSortStability(t *testing.T) {
	records := sample()
	// 2 and 4 are both Medium; they must keep input order under both orders.
	asc := ids(FilterAndSort(records, Filter{Difficulty: "Medium"}, SortByDifficulty, OrderAsc))
	desc := ids(FilterAndSort(records, Filter{Difficulty: "Medium"}, SortByDifficulty, OrderDesc))
	for _, got := range [][]int64{asc, desc} {
		if len(got) != 2 || got[0] != 2 || got[1] != 4 {
			t.Fatalf("equal-key order not preserved: %v", got)
		}
	}
}

func TestSortByTitle(t *testing.T) {
	got := ids(FilterAndSort(sample(), Filter{}, SortByTitle, OrderAsc))
	want := []int64{2, 3, 4, 1} // Course, Median, Three, Two
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSortByCreatedAtDesc(t *testing.T) {
	got := ids(FilterAndSort(sample(), Filter{}, SortByCreatedAt, OrderDesc))
	want := []int64{4, 3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	records := sample()
	FilterAndSort(records, Filter{}, SortByTitle, OrderDesc)
	if records[0].ID != 1 || records[3].ID != 4 {
		t.Fatalf("input slice was reordered: %v", ids(records))
	}
}

func TestUnknownSortKeyKeepsInputOrder(t *testing.T) {
	got := ids(FilterAndSort(sample(), Filter{}, "bogus", OrderAsc))
	want := []int64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
