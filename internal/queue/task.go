// Package queue dispatches background tasks to the configured broker and
// records their outcomes in the configured result backend. The broker
// implementation is selected by the URL scheme, so a deployment can move
// from the Redis list broker to RabbitMQ by overriding one value.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work exchanged between the server and workers.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewTask builds a task envelope with a fresh ID. A nil payload is valid —
// scheduled tasks like the log pruner carry no arguments.
func NewTask(name string, payload any) (*Task, error) {
	task := &Task{
		ID:         uuid.New().String(),
		Name:       name,
		EnqueuedAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("queue: encode payload for %s: %w", name, err)
		}
		task.Payload = raw
	}
	return task, nil
}
