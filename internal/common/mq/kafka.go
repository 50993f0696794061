package mq

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"algotrack/pkg/utils/logger"
)

// KafkaConfig holds the Kafka connection configuration
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"client_id"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	RequiredAcks int           `yaml:"required_acks"`
	MinBytes     int           `yaml:"min_bytes"`
	MaxBytes     int           `yaml:"max_bytes"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// DefaultKafkaConfig returns a configuration with sensible defaults
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "algotrack",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
		MinBytes:     1,
		MaxBytes:     10 * 1024 * 1024,
		MaxWait:      500 * time.Millisecond,
	}
}

// KafkaQueue implements MessageQueue backed by Kafka
type KafkaQueue struct {
	config *KafkaConfig
	writer *kafka.Writer

	mu            sync.Mutex
	subscriptions []*subscription
	started       bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type subscription struct {
	topic   string
	handler HandlerFunc
	opts    *SubscribeOptions
	reader  *kafka.Reader
}

// NewKafkaQueue creates a new Kafka-backed message queue
func NewKafkaQueue(config *KafkaConfig) (*KafkaQueue, error) {
	if config == nil {
		config = DefaultKafkaConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
	}

	return &KafkaQueue{
		config: config,
		writer: writer,
	}, nil
}

// Publish publishes a message to the specified topic.
// Messages sharing a PartitionKey land on the same partition.
func (q *KafkaQueue) Publish(ctx context.Context, topic string, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	kafkaMsg := kafka.Message{
		Topic:   topic,
		Key:     []byte(message.PartitionKey),
		Value:   message.Body,
		Time:    message.Timestamp,
		Headers: encodeHeaders(message),
	}

	if err := q.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe subscribes to a topic with default options
func (q *KafkaQueue) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	return q.SubscribeWithOptions(ctx, topic, handler, &SubscribeOptions{})
}

// SubscribeWithOptions subscribes to a topic with custom options.
// Subscriptions must be registered before Start.
func (q *KafkaQueue) SubscribeWithOptions(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error {
	if opts == nil {
		opts = &SubscribeOptions{}
	}
	opts.SetDefaults()
	if opts.ConsumerGroup == "" {
		opts.ConsumerGroup = "algotrack-" + topic
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		Topic:    topic,
		GroupID:  opts.ConsumerGroup,
		MinBytes: q.config.MinBytes,
		MaxBytes: q.config.MaxBytes,
		MaxWait:  q.config.MaxWait,
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		reader.Close()
		return fmt.Errorf("kafka: cannot subscribe after Start")
	}
	q.subscriptions = append(q.subscriptions, &subscription{
		topic:   topic,
		handler: handler,
		opts:    opts,
		reader:  reader,
	})
	return nil
}

// Start starts consuming messages on all registered subscriptions
func (q *KafkaQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("kafka: already started")
	}
	q.started = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for _, sub := range q.subscriptions {
		for i := 0; i < sub.opts.Concurrency; i++ {
			q.wg.Add(1)
			go q.consumeLoop(ctx, sub)
		}
	}
	return nil
}

// Stop gracefully stops all consumers
func (q *KafkaQueue) Stop() error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	cancel := q.cancel
	subs := q.subscriptions
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()

	var firstErr error
	for _, sub := range subs {
		if err := sub.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (q *KafkaQueue) consumeLoop(ctx context.Context, sub *subscription) {
	defer q.wg.Done()

	for {
		kafkaMsg, err := sub.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "kafka: fetch message failed",
				zap.String("topic", sub.topic),
				zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		message := decodeMessage(&kafkaMsg)
		message.MaxRetries = sub.opts.MaxRetries

		q.handleWithRetry(ctx, sub, message)

		if err := sub.reader.CommitMessages(ctx, kafkaMsg); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "kafka: commit failed",
				zap.String("topic", sub.topic),
				zap.Error(err))
		}
	}
}

func (q *KafkaQueue) handleWithRetry(ctx context.Context, sub *subscription, message *Message) {
	var err error
	for message.RetryCount = 0; message.RetryCount <= sub.opts.MaxRetries; message.RetryCount++ {
		if err = sub.handler(ctx, message); err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		logger.Warn(ctx, "kafka: handler failed",
			zap.String("topic", sub.topic),
			zap.String("message_id", message.ID),
			zap.Int("retry", message.RetryCount),
			zap.Error(err))
		if message.RetryCount < sub.opts.MaxRetries {
			time.Sleep(sub.opts.RetryDelay)
		}
	}

	if sub.opts.DeadLetterTopic != "" {
		message.Headers["x-failed-topic"] = sub.topic
		message.Headers["x-failure"] = err.Error()
		if dlqErr := q.Publish(ctx, sub.opts.DeadLetterTopic, message); dlqErr != nil {
			logger.Error(ctx, "kafka: dead-letter publish failed",
				zap.String("topic", sub.opts.DeadLetterTopic),
				zap.String("message_id", message.ID),
				zap.Error(dlqErr))
		}
		return
	}
	logger.Error(ctx, "kafka: message dropped after retries exhausted",
		zap.String("topic", sub.topic),
		zap.String("message_id", message.ID),
		zap.Error(err))
}

// Ping verifies connectivity by dialing the first broker
func (q *KafkaQueue) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", q.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: ping: %w", err)
	}
	return conn.Close()
}

// Close stops consumers and closes the writer
func (q *KafkaQueue) Close() error {
	if err := q.Stop(); err != nil {
		return err
	}
	return q.writer.Close()
}

func encodeHeaders(message *Message) []kafka.Header {
	headers := []kafka.Header{
		{Key: "x-message-id", Value: []byte(message.ID)},
		{Key: "x-timestamp", Value: []byte(strconv.FormatInt(message.Timestamp.UnixMilli(), 10))},
	}
	for k, v := range message.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func decodeMessage(kafkaMsg *kafka.Message) *Message {
	message := &Message{
		PartitionKey: string(kafkaMsg.Key),
		Body:         kafkaMsg.Value,
		Timestamp:    kafkaMsg.Time,
		Headers:      make(map[string]string),
	}
	for _, h := range kafkaMsg.Headers {
		switch h.Key {
		case "x-message-id":
			message.ID = string(h.Value)
		case "x-timestamp":
			if ms, err := strconv.ParseInt(string(h.Value), 10, 64); err == nil {
				message.Timestamp = time.UnixMilli(ms)
			}
		default:
			message.Headers[h.Key] = string(h.Value)
		}
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	return message
}
