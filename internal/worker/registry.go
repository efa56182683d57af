// Package worker runs the background side of the task queue: the beat
// scheduler that enqueues tasks on the configured schedule, and the consume
// loop that dispatches them to registered handlers.
package worker

import (
	"context"

	"panorama/internal/queue"
)

// HandlerFunc processes one task.
type HandlerFunc func(ctx context.Context, task *queue.Task) error

// Registry holds task handlers grouped under import names. The
// configuration's import list decides which groups a worker enables,
// mirroring how the task modules are switched on per deployment.
type Registry struct {
	imports map[string]map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{imports: make(map[string]map[string]HandlerFunc)}
}

// Register adds a handler for taskName under importName.
func (r *Registry) Register(importName, taskName string, fn HandlerFunc) {
	group, ok := r.imports[importName]
	if !ok {
		group = make(map[string]HandlerFunc)
		r.imports[importName] = group
	}
	group[taskName] = fn
}

// Resolve flattens the handlers of the enabled imports into one dispatch
// table. Imports with no registered handlers are ignored.
func (r *Registry) Resolve(imports []string) map[string]HandlerFunc {
	handlers := make(map[string]HandlerFunc)
	for _, name := range imports {
		for task, fn := range r.imports[name] {
			handlers[task] = fn
		}
	}
	return handlers
}
