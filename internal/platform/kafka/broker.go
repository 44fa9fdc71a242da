package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/seaward/base-api/internal/queue"
)

// topicPrefix namespaces task topics away from anything else on the broker.
const topicPrefix = "tasks."

// TopicFor maps a logical queue name to its broker topic.
func TopicFor(queueName string) string {
	return topicPrefix + queueName
}

// Producer publishes task messages to the broker. One Producer serves all
// queues; the topic is chosen per message.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer against the given broker addresses.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		logger: logger.With("component", "kafka_producer"),
	}
}

// Publish sends one message to the topic backing its queue.
func (p *Producer) Publish(ctx context.Context, msg queue.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicFor(msg.Queue),
		Key:   []byte(msg.ID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to queue %q: %w", msg.Queue, err)
	}

	p.logger.Debug("message published",
		"task_id", msg.ID,
		"task_type", msg.Type,
		"queue", msg.Queue,
		"attempt", msg.Attempt)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer pulls task messages from one queue through a consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewConsumer creates a Consumer for the named queue. All workers of a
// fleet share groupID so each message is handed to a single worker.
func NewConsumer(brokers []string, queueName, groupID string, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       TopicFor(queueName),
			GroupID:     groupID,
			StartOffset: kafka.FirstOffset,
			MaxWait:     10 * time.Second,
		}),
		logger: logger.With("component", "kafka_consumer", "queue", queueName),
	}
}

// Fetch blocks until a message is available or ctx is cancelled. A message
// that cannot be decoded is committed and reported as ErrMalformedMessage
// so it does not wedge the partition.
func (c *Consumer) Fetch(ctx context.Context) (queue.Delivery, error) {
	raw, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	var msg queue.Message
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		c.logger.Error("discarding undecodable message",
			"partition", raw.Partition,
			"offset", raw.Offset,
			"error", err)
		if commitErr := c.reader.CommitMessages(ctx, raw); commitErr != nil {
			return nil, fmt.Errorf("failed to commit malformed message: %w", commitErr)
		}
		return nil, fmt.Errorf("%w: %v", queue.ErrMalformedMessage, err)
	}

	c.logger.Debug("message fetched",
		"task_id", msg.ID,
		"task_type", msg.Type,
		"partition", raw.Partition,
		"offset", raw.Offset)

	return &delivery{message: msg, raw: raw, reader: c.reader}, nil
}

// Close closes the underlying reader and leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// delivery couples a decoded message with its commit handle.
type delivery struct {
	message queue.Message
	raw     kafka.Message
	reader  *kafka.Reader
}

func (d *delivery) Message() queue.Message {
	return d.message
}

func (d *delivery) Ack(ctx context.Context) error {
	return d.reader.CommitMessages(ctx, d.raw)
}
