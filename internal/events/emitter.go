package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter dispatches events synchronously to registered handlers.
// A failing handler is logged and skipped; lifecycle notification is
// best-effort and never blocks or fails task processing.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates an emitter with no handlers registered.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes a handler to all subsequent events.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// EmitEvent delivers the event to every registered handler in order.
func (e *InMemoryEmitter) EmitEvent(ctx context.Context, event TaskEvent) {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("event handler failed",
				"kind", event.Kind,
				"task_id", event.TaskID,
				"error", err)
		}
	}
}

// LogHandler writes every lifecycle event as a structured log line. It is
// the default subscriber in the worker role.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler over the given logger.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With("component", "task_events")}
}

// HandleEvent logs the event. Failures are logged at warn so permanent
// failures stand out in aggregated logs.
func (h *LogHandler) HandleEvent(ctx context.Context, event TaskEvent) error {
	attrs := []any{
		"kind", event.Kind,
		"task_id", event.TaskID,
		"task_type", event.Type,
		"queue", event.Queue,
		"attempt", event.Attempt,
	}
	if event.Error != "" {
		attrs = append(attrs, "task_error", event.Error)
	}

	if event.Kind == KindFailed {
		h.logger.Warn("task lifecycle event", attrs...)
	} else {
		h.logger.Info("task lifecycle event", attrs...)
	}
	return nil
}
