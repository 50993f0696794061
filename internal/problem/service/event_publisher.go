package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"algotrack/internal/common/mq"
	"algotrack/internal/problem/model"
)

// DefaultEventTopic is the Kafka topic carrying record-change events.
const DefaultEventTopic = "tracker.problem.events"

// ProblemEventPublisher publishes record-change events. Messages are keyed
// by user id so one user's events stay on one partition, which keeps
// downstream aggregate recomputation ordered per user.
type ProblemEventPublisher struct {
	queue mq.MessageQueue
	topic string
}

// NewProblemEventPublisher creates a new record-change event publisher.
func NewProblemEventPublisher(queue mq.MessageQueue, topic string) *ProblemEventPublisher {
	if topic == "" {
		topic = DefaultEventTopic
	}
	return &ProblemEventPublisher{queue: queue, topic: topic}
}

// Publish publishes one record-change event.
func (p *ProblemEventPublisher) Publish(ctx context.Context, eventType model.ProblemEventType, problemID, userID int64) error {
	if p == nil || p.queue == nil {
		return errors.New("event publisher is nil")
	}
	if problemID <= 0 || userID <= 0 {
		return errors.New("problemID and userID are required")
	}

	event := model.ProblemEvent{
		EventType:  eventType,
		ProblemID:  problemID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal problem event failed: %w", err)
	}

	message := mq.NewMessage(payload)
	message.ID = fmt.Sprintf("problem-%s-%d-%d", eventType, problemID, time.Now().UnixNano())
	message.PartitionKey = strconv.FormatInt(userID, 10)
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return fmt.Errorf("publish problem event failed: %w", err)
	}
	return nil
}
