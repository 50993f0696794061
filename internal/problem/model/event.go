package model

import "time"

type ProblemEventType string

const (
	ProblemEventCreated ProblemEventType = "created"
	ProblemEventUpdated ProblemEventType = "updated"
	ProblemEventDeleted ProblemEventType = "deleted"
)

// ProblemEvent announces a record mutation. Consumers recompute the derived
// profile aggregates of the owning user from it.
type ProblemEvent struct {
	EventType  ProblemEventType `json:"event_type"`
	ProblemID  int64            `json:"problem_id"`
	UserID     int64            `json:"user_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}
