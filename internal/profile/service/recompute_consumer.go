package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"algotrack/internal/common/mq"
	"algotrack/internal/problem/model"
	problemservice "algotrack/internal/problem/service"
	statsservice "algotrack/internal/stats/service"
	"algotrack/pkg/utils/logger"
)

const recomputeDeadLetterSuffix = ".dead-letter"

// RecomputeConsumer listens for record-change events and rebuilds the
// profile aggregates and cached statistics for the affected user. Events
// are partitioned by user id, so recomputation for a given user is
// strictly ordered.
type RecomputeConsumer struct {
	queue    mq.MessageQueue
	profiles *ProfileService
	stats    *statsservice.StatsService
	topic    string
	group    string
}

func NewRecomputeConsumer(queue mq.MessageQueue, profiles *ProfileService, stats *statsservice.StatsService, topic, group string) *RecomputeConsumer {
	if topic == "" {
		topic = problemservice.DefaultEventTopic
	}
	return &RecomputeConsumer{
		queue:    queue,
		profiles: profiles,
		stats:    stats,
		topic:    topic,
		group:    group,
	}
}

// Register subscribes the handler. Call before the queue's Start.
func (c *RecomputeConsumer) Register(ctx context.Context) error {
	opts := &mq.SubscribeOptions{
		ConsumerGroup:   c.group,
		DeadLetterTopic: c.topic + recomputeDeadLetterSuffix,
	}
	return c.queue.SubscribeWithOptions(ctx, c.topic, c.handleEvent, opts)
}

func (c *RecomputeConsumer) handleEvent(ctx context.Context, message *mq.Message) error {
	var event model.ProblemEvent
	if err := json.Unmarshal(message.Body, &event); err != nil {
		// A payload that never parses will never parse on retry either.
		logger.Error(ctx, "dropping malformed record event",
			zap.String("message_id", message.ID),
			zap.Error(err))
		return nil
	}
	if event.UserID <= 0 {
		logger.Warn(ctx, "record event without user id",
			zap.String("message_id", message.ID),
			zap.String("event_type", string(event.EventType)))
		return nil
	}

	if err := c.profiles.RecomputeAggregates(ctx, event.UserID); err != nil {
		logger.Error(ctx, "aggregate recompute failed",
			zap.Int64("user_id", event.UserID),
			zap.Int64("problem_id", event.ProblemID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		return err
	}

	if c.stats != nil {
		c.stats.InvalidateUser(ctx, event.UserID)
	}

	logger.Debug(ctx, "recomputed profile aggregates",
		zap.Int64("user_id", event.UserID),
		zap.String("event_type", string(event.EventType)))
	return nil
}
