package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a task record does not exist in the result
// backend.
var ErrNotFound = errors.New("task not found")

// Status represents the current state of a task in the result backend.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the result-backend row for one task. Submitters poll it to see
// completed results or a permanent failure instead of having work vanish.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Queue     string    `json:"queue"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	Result    []byte    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reader is the read-only slice of the result backend. The monitor role is
// handed a Reader, never a Store, so its read-only claim is enforced by
// type rather than convention.
type Reader interface {
	// GetRecord retrieves one task record by ID.
	GetRecord(ctx context.Context, id uuid.UUID) (Record, error)

	// CountByStatus returns the number of tasks per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// Store persists task lifecycle transitions to the result backend.
type Store interface {
	Reader

	// SaveTask inserts a new pending task record.
	SaveTask(ctx context.Context, rec Record) error

	// MarkProcessing records that an execution attempt has started.
	MarkProcessing(ctx context.Context, id uuid.UUID, attempt int) error

	// MarkCompleted records a successful result.
	MarkCompleted(ctx context.Context, id uuid.UUID, result []byte) error

	// MarkRetrying moves a failed task back to pending with its attempt
	// count and last error, ahead of re-enqueueing.
	MarkRetrying(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error

	// MarkFailed records a permanent failure after attempts are exhausted.
	MarkFailed(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error
}
