package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Rank returns the fixed ordering used when sorting by difficulty.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type Status string

const (
	StatusSolved    Status = "Solved"
	StatusUnsolved  Status = "Unsolved"
	StatusAttempted Status = "Attempted"
)

func (s Status) Valid() bool {
	return s == StatusSolved || s == StatusUnsolved || s == StatusAttempted
}

// Active reports whether a record with this status counts toward
// streak and activity computations.
func (s Status) Active() bool {
	return s == StatusSolved || s == StatusAttempted
}

// Problem is one practice-problem record owned by a single user.
// CreatedAt and UpdatedAt are server-assigned; UpdatedAt >= CreatedAt.
type Problem struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	Link       string     `json:"link,omitempty"`
	Topic      string     `json:"topic,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
