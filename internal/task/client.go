package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seaward/base-api/internal/queue"
	"github.com/seaward/base-api/internal/redact"
)

// Enqueuer is the narrow capability needed to submit new tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload []byte, queueName string) (uuid.UUID, error)
}

// Observer is the read-only view over task state handed to the monitor
// role. It carries no way to enqueue, retry, or mutate anything.
type Observer interface {
	Result(ctx context.Context, id uuid.UUID) (Record, error)
	Stats(ctx context.Context) (map[Status]int, error)
}

// Client is the task queue client used by the API, worker, and scheduler
// roles: it records every submission in the result backend and publishes
// the message to the broker.
type Client struct {
	publisher queue.Publisher
	store     Store
	logger    *slog.Logger
}

// NewClient creates a Client over the given transport and result backend.
func NewClient(publisher queue.Publisher, store Store, logger *slog.Logger) *Client {
	return &Client{
		publisher: publisher,
		store:     store,
		logger:    logger.With("component", "task_client"),
	}
}

// Enqueue records a new pending task and publishes it to the named queue.
// The record is written first so a submitter can always resolve the
// returned ID, even if the worker has not picked the task up yet.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload []byte, queueName string) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	rec := Record{
		ID:        id,
		Type:      taskType,
		Queue:     queueName,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.SaveTask(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save task record: %w", err)
	}

	msg := queue.Message{
		ID:         id,
		Type:       taskType,
		Queue:      queueName,
		Payload:    payload,
		Attempt:    0,
		EnqueuedAt: now,
	}
	if err := c.publisher.Publish(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish task: %w", err)
	}

	c.logger.Info("task enqueued",
		"task_id", id,
		"task_type", taskType,
		"queue", queueName)
	return id, nil
}

// Retry re-enqueues a previously fetched message after the given delay,
// bumping its attempt count and recording the cause in the result backend.
func (c *Client) Retry(ctx context.Context, msg queue.Message, delay time.Duration, cause error) error {
	next := msg
	next.Attempt++
	next.NotBefore = time.Now().UTC().Add(delay)

	if err := c.store.MarkRetrying(ctx, msg.ID, next.Attempt, redact.Error(cause)); err != nil {
		return fmt.Errorf("failed to record retry: %w", err)
	}
	if err := c.publisher.Publish(ctx, next); err != nil {
		return fmt.Errorf("failed to re-enqueue task: %w", err)
	}

	c.logger.Info("task scheduled for retry",
		"task_id", msg.ID,
		"task_type", msg.Type,
		"attempt", next.Attempt,
		"delay", delay,
		"error", cause)
	return nil
}

// Result returns the current result-backend record for a task.
func (c *Client) Result(ctx context.Context, id uuid.UUID) (Record, error) {
	return c.store.GetRecord(ctx, id)
}

// ReadOnlyClient implements Observer over a Reader. It is constructed from
// the read-only store slice, so the monitor role structurally cannot write
// task data no matter how it fails.
type ReadOnlyClient struct {
	reader Reader
}

// NewReadOnlyClient creates the capability-limited client for the monitor.
func NewReadOnlyClient(reader Reader) *ReadOnlyClient {
	return &ReadOnlyClient{reader: reader}
}

// Result returns the record for one task.
func (c *ReadOnlyClient) Result(ctx context.Context, id uuid.UUID) (Record, error) {
	return c.reader.GetRecord(ctx, id)
}

// Stats returns task counts per status.
func (c *ReadOnlyClient) Stats(ctx context.Context) (map[Status]int, error) {
	return c.reader.CountByStatus(ctx)
}
