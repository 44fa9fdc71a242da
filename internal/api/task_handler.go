package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/seaward/base-api/internal/api/shared"
	"github.com/seaward/base-api/internal/task"
)

// ResultReader resolves a task ID to its result-backend record.
type ResultReader interface {
	Result(ctx context.Context, id uuid.UUID) (task.Record, error)
}

// CreateTaskRequest represents the request body for submitting a task.
type CreateTaskRequest struct {
	Type    string          `json:"type" validate:"required"`
	Queue   string          `json:"queue"`
	Payload json.RawMessage `json:"payload"`
}

// TaskResponse represents the result-backend view of a task.
type TaskResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Queue     string          `json:"queue"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaskHandler handles task submission and status lookup for the API role.
type TaskHandler struct {
	enqueuer     task.Enqueuer
	results      ResultReader
	defaultQueue string
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewTaskHandler creates a TaskHandler. defaultQueue is used when a
// submission names no queue.
func NewTaskHandler(enqueuer task.Enqueuer, results ResultReader, defaultQueue string, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		enqueuer:     enqueuer,
		results:      results,
		defaultQueue: defaultQueue,
		validator:    validator.New(),
		logger:       logger.With("component", "task_handler"),
	}
}

// CreateTask handles POST /api/tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task type is required")
		return
	}

	queueName := req.Queue
	if queueName == "" {
		queueName = h.defaultQueue
	}

	id, err := h.enqueuer.Enqueue(r.Context(), req.Type, req.Payload, queueName)
	if err != nil {
		h.logger.Error("failed to enqueue task",
			"task_type", req.Type,
			"queue", queueName,
			"error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to enqueue task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskResponse{
		ID:     id.String(),
		Type:   req.Type,
		Queue:  queueName,
		Status: string(task.StatusPending),
	})
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	rec, err := h.results.Result(r.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("failed to load task record", "task_id", id, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to load task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

func recordToResponse(rec task.Record) TaskResponse {
	return TaskResponse{
		ID:        rec.ID.String(),
		Type:      rec.Type,
		Queue:     rec.Queue,
		Status:    string(rec.Status),
		Attempts:  rec.Attempts,
		LastError: rec.LastError,
		Result:    rec.Result,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
