package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seaward/base-api/internal/api/shared"
	"github.com/seaward/base-api/internal/task"
)

// MonitorHandler serves the read-only endpoints of the monitor role. It
// holds only a task.Observer, so it has no way to enqueue, retry, or
// mutate task state no matter how a request fails.
type MonitorHandler struct {
	observer task.Observer
	logger   *slog.Logger
}

// NewMonitorHandler creates a MonitorHandler over a read-only observer.
func NewMonitorHandler(observer task.Observer, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		observer: observer,
		logger:   logger.With("component", "monitor_handler"),
	}
}

// StatsResponse summarizes queue state as task counts per status.
type StatsResponse struct {
	Tasks map[task.Status]int `json:"tasks"`
}

// GetStats handles GET /api/stats requests.
func (h *MonitorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.observer.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load task stats", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{Tasks: counts})
}

// GetTask handles GET /api/tasks/{id} requests on the monitor surface.
func (h *MonitorHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	rec, err := h.observer.Result(r.Context(), id)
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
