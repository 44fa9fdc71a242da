package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/seaward/base-api/internal/api/shared"
	"github.com/seaward/base-api/internal/health"
)

// HealthChecker runs one round of dependency probes.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// HealthHandler serves GET /health. Each request performs an independent
// probe round; callers always get per-dependency detail, never a bare 500.
type HealthHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler over the given aggregator.
func NewHealthHandler(checker HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger.With("component", "health_handler"),
	}
}

// Check handles GET /health requests. Healthy and degraded instances both
// answer 200 (degraded is flagged in the body so the instance keeps
// receiving traffic); only an unhealthy instance answers 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	shared.RespondWithJSON(w, r, status, report)
}
