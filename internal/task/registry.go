package task

import (
	"fmt"
	"sort"
)

// Registry maps task type names to their handlers. It is built once at
// startup and read-only afterwards, so dispatch is a plain map lookup and
// no locking is needed.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task type. Registering the same type twice
// is a programming error and is rejected.
func (r *Registry) Register(taskType string, handler Handler) error {
	if taskType == "" {
		return fmt.Errorf("task type must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for task type %q must not be nil", taskType)
	}
	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("handler already registered for task type %q", taskType)
	}
	r.handlers[taskType] = handler
	return nil
}

// Resolve looks up the handler for a task type.
func (r *Registry) Resolve(taskType string) (Handler, bool) {
	handler, ok := r.handlers[taskType]
	return handler, ok
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for taskType := range r.handlers {
		types = append(types, taskType)
	}
	sort.Strings(types)
	return types
}
