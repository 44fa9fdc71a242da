package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a task lifecycle transition.
type Kind string

const (
	// KindCompleted means a handler returned a successful result.
	KindCompleted Kind = "task.completed"

	// KindRetrying means an attempt failed and the task was re-enqueued.
	KindRetrying Kind = "task.retrying"

	// KindFailed means the task failed permanently. Either its error was
	// not retryable or its attempts ran out.
	KindFailed Kind = "task.failed"
)

// TaskEvent describes one lifecycle transition of one task.
type TaskEvent struct {
	Kind    Kind      `json:"kind"`
	TaskID  uuid.UUID `json:"task_id"`
	Type    string    `json:"type"`
	Queue   string    `json:"queue"`
	Attempt int       `json:"attempt"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// NewTaskEvent creates a TaskEvent stamped with the current time.
func NewTaskEvent(kind Kind, taskID uuid.UUID, taskType, queueName string, attempt int, errMsg string) TaskEvent {
	return TaskEvent{
		Kind:    kind,
		TaskID:  taskID,
		Type:    taskType,
		Queue:   queueName,
		Attempt: attempt,
		Error:   errMsg,
		At:      time.Now().UTC(),
	}
}

// Handler processes task lifecycle events. Handlers must tolerate being
// called concurrently from multiple workers.
type Handler interface {
	HandleEvent(ctx context.Context, event TaskEvent) error
}

// Emitter publishes task lifecycle events to whoever subscribed.
type Emitter interface {
	EmitEvent(ctx context.Context, event TaskEvent)
}
