package engine

import (
	"sort"
	"strings"

	"algotrack/internal/problem/model"
)

// FilterAll is the sentinel filter value meaning "no filter".
const FilterAll = "All"

// Filter is a conjunction of predicates over problem records. Empty fields
// and the "All" sentinel match everything; Search matches a case-insensitive
// substring of the title or topic.
type Filter struct {
	Search     string
	Topic      string
	Difficulty string
	Status     string
}

// Sort keys accepted by FilterAndSort.
const (
	SortByTitle      = "title"
	SortByTopic      = "topic"
	SortByDifficulty = "difficulty"
	SortByStatus     = "status"
	SortByCreatedAt  = "created_at"
)

// Orders accepted by FilterAndSort.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ValidSortKey reports whether FilterAndSort understands the sort key.
func ValidSortKey(key string) bool {
	switch key {
	case SortByTitle, SortByTopic, SortByDifficulty, SortByStatus, SortByCreatedAt:
		return true
	}
	return false
}

// FilterAndSort returns a new slice of the records matching the filter,
// stably sorted by the given key. Difficulty sorts by its fixed rank
// (Easy < Medium < Hard); other keys sort lexicographically or by time.
// Equal-key records keep their relative input order. An empty or unknown
// sort key leaves the filtered records in input order.
func FilterAndSort(records []model.Problem, filter Filter, sortKey, order string) []model.Problem {
	result := make([]model.Problem, 0, len(records))
	for _, p := range records {
		if matches(p, filter) {
			result = append(result, p)
		}
	}

	if !ValidSortKey(sortKey) {
		return result
	}

	desc := order == OrderDesc
	sort.SliceStable(result, func(i, j int) bool {
		less := lessBy(result[i], result[j], sortKey)
		if desc {
			return lessBy(result[j], result[i], sortKey)
		}
		return less
	})
	return result
}

func matches(p model.Problem, f Filter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Topic), needle) {
			return false
		}
	}
	if !wildcard(f.Topic) && p.Topic != f.Topic {
		return false
	}
	if !wildcard(f.Difficulty) && string(p.Difficulty) != f.Difficulty {
		return false
	}
	if !wildcard(f.Status) && string(p.Status) != f.Status {
		return false
	}
	return true
}

func wildcard(value string) bool {
	return value == "" || value == FilterAll
}

func lessBy(a, b model.Problem, sortKey string) bool {
	switch sortKey {
	case SortByTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case SortByTopic:
		return strings.ToLower(a.Topic) < strings.ToLower(b.Topic)
	case SortByDifficulty:
		return a.Difficulty.Rank() < b.Difficulty.Rank()
	case SortByStatus:
		return a.Status < b.Status
	case SortByCreatedAt:
		return effectiveDate(a).Before(effectiveDate(b))
	}
	return false
}
