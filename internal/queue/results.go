package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the recorded lifecycle state of a task.
type Status string

const (
	StatusStarted Status = "started"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// resultTTL is how long task outcomes stay readable in the result backend.
const resultTTL = 24 * time.Hour

// ErrResultNotFound is returned for unknown or expired task IDs.
var ErrResultNotFound = errors.New("queue: result not found")

// Result is one task outcome as stored in the result backend.
type Result struct {
	TaskID    string    `json:"task_id"`
	Name      string    `json:"task_name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Results records task outcomes in the configured result backend.
type Results struct {
	rdb *redis.Client
}

// NewResults connects to the result backend URL and verifies it with a PING.
func NewResults(backendURL string) (*Results, error) {
	opts, err := redis.ParseURL(backendURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse result backend url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("queue: dial result backend: %w", err)
	}

	return &Results{rdb: rdb}, nil
}

// Record writes the task's current state, replacing any earlier state.
func (r *Results) Record(ctx context.Context, task *Task, status Status, taskErr error) error {
	res := Result{
		TaskID:    task.ID,
		Name:      task.Name,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if taskErr != nil {
		res.Error = taskErr.Error()
	}

	body, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, resultKey(task.ID), body, resultTTL).Err()
}

// Get fetches the recorded state of a task by ID.
func (r *Results) Get(ctx context.Context, taskID string) (*Result, error) {
	data, err := r.rdb.Get(ctx, resultKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Close shuts down the underlying connection pool.
func (r *Results) Close() error {
	return r.rdb.Close()
}

func resultKey(taskID string) string {
	return "panorama:result:" + taskID
}
