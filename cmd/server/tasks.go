package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seaward/base-api/internal/task"
)

// Built-in task types. Application tasks register here alongside them.
const (
	// taskTypePing echoes its payload. It doubles as the end-to-end probe
	// for the enqueue, execute, and result-backend path.
	taskTypePing = "ping"
)

// registerBuiltinTasks adds the task handlers this binary ships with.
// Registration is explicit; a handler that is not listed here does not
// exist as far as workers are concerned.
func registerBuiltinTasks(registry *task.Registry) error {
	if err := registry.Register(taskTypePing, handlePing); err != nil {
		return fmt.Errorf("failed to register %q: %w", taskTypePing, err)
	}
	return nil
}

// scheduleEntries returns the recurring tasks the scheduler role enqueues.
func scheduleEntries(queueName string) []task.Entry {
	return []task.Entry{
		{
			Name:    "heartbeat",
			Type:    taskTypePing,
			Queue:   queueName,
			Payload: []byte(`{"source":"scheduler"}`),
			Every:   time.Minute,
		},
	}
}

// handlePing completes with an echo of its payload.
func handlePing(ctx context.Context, payload []byte) task.Outcome {
	echo := json.RawMessage(`{}`)
	if len(payload) > 0 {
		if !json.Valid(payload) {
			return task.Failed(fmt.Errorf("ping payload is not valid JSON"))
		}
		echo = payload
	}

	result, err := json.Marshal(map[string]json.RawMessage{"pong": echo})
	if err != nil {
		return task.Failed(fmt.Errorf("failed to encode ping result: %w", err))
	}
	return task.Completed(result)
}
