package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seaward/base-api/internal/platform/logger"
	"github.com/seaward/base-api/internal/task"
)

// TaskStore implements the task.Store interface using PostgreSQL.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a TaskStore over an established connection pool.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// SaveTask inserts a new pending task record.
func (s *TaskStore) SaveTask(ctx context.Context, rec task.Record) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO tasks (id, type, queue, status, attempts, last_error, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Type,
		rec.Queue,
		rec.Status,
		rec.Attempts,
		rec.LastError,
		rec.Result,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// MarkProcessing records that an execution attempt has started.
func (s *TaskStore) MarkProcessing(ctx context.Context, id uuid.UUID, attempt int) error {
	return s.updateStatus(ctx, id, task.StatusProcessing, attempt, "", nil)
}

// MarkCompleted records a successful result.
func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result []byte) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, result = $2, updated_at = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query, task.StatusCompleted, result, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to mark task completed", "task_id", id, "error", err)
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	return s.requireRow(ctx, res, id)
}

// MarkRetrying moves a failed task back to pending ahead of re-enqueueing.
func (s *TaskStore) MarkRetrying(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error {
	return s.updateStatus(ctx, id, task.StatusPending, attempt, errMsg, nil)
}

// MarkFailed records a permanent failure after attempts are exhausted.
func (s *TaskStore) MarkFailed(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error {
	return s.updateStatus(ctx, id, task.StatusFailed, attempt, errMsg, nil)
}

func (s *TaskStore) updateStatus(ctx context.Context, id uuid.UUID, status task.Status, attempt int, errMsg string, _ []byte) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, attempts = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`

	res, err := s.db.ExecContext(ctx, query, status, attempt, errMsg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return s.requireRow(ctx, res, id)
}

func (s *TaskStore) requireRow(ctx context.Context, res sql.Result, id uuid.UUID) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		logger.FromContext(ctx).Warn("no task found to update", "task_id", id)
		return fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	return nil
}

// GetRecord retrieves one task record by ID.
func (s *TaskStore) GetRecord(ctx context.Context, id uuid.UUID) (task.Record, error) {
	query := `
		SELECT id, type, queue, status, attempts, last_error, result, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var rec task.Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Type,
		&rec.Queue,
		&rec.Status,
		&rec.Attempts,
		&rec.LastError,
		&rec.Result,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Record{}, fmt.Errorf("%w: %s", task.ErrNotFound, id)
	}
	if err != nil {
		return task.Record{}, fmt.Errorf("failed to get task record: %w", err)
	}
	return rec, nil
}

// CountByStatus returns the number of tasks per status.
func (s *TaskStore) CountByStatus(ctx context.Context) (map[task.Status]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tasks
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[task.Status]int)
	for rows.Next() {
		var status task.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task counts: %w", err)
	}
	return counts, nil
}
