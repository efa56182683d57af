package worker

import (
	"context"
	"log/slog"
	"time"

	"panorama/internal/metrics"
	"panorama/internal/queue"
)

// perTaskTimeout caps a single task run. Report rendering that exceeds this
// fails the task rather than blocking the consume loop indefinitely.
const perTaskTimeout = 5 * time.Minute

// ResultRecorder persists task lifecycle states. *queue.Results implements
// it; tests inject a fake.
type ResultRecorder interface {
	Record(ctx context.Context, task *queue.Task, status queue.Status, taskErr error) error
}

// Worker consumes tasks from the broker and dispatches them to handlers.
type Worker struct {
	consumer queue.Consumer
	results  ResultRecorder
	handlers map[string]HandlerFunc
	acksLate bool
}

// New constructs a Worker. All dependencies are injected — no globals.
// acksLate selects when a delivery is acknowledged: false acks on receipt,
// true acks only after the handler succeeds (and requeues on failure).
func New(consumer queue.Consumer, results ResultRecorder, handlers map[string]HandlerFunc, acksLate bool) *Worker {
	return &Worker{consumer: consumer, results: results, handlers: handlers, acksLate: acksLate}
}

// Run starts consuming tasks and blocks until ctx is cancelled or the
// delivery channel closes. The in-flight task is finished before returning.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		return err
	}

	slog.Info("worker started", "component", "worker", "tasks", len(w.handlers), "acks_late", w.acksLate)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down", "component", "worker")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				slog.Warn("delivery channel closed", "component", "worker")
				return nil
			}
			w.process(delivery)
		}
	}
}

// process runs a single delivery through its handler and records the
// outcome in the result backend.
func (w *Worker) process(d queue.Delivery) {
	task := d.Task

	handler, ok := w.handlers[task.Name]
	if !ok {
		slog.Warn("no handler registered", "component", "worker", "task", task.Name, "task_id", task.ID)
		d.Discard()
		metrics.TasksProcessed.WithLabelValues(task.Name, "unknown").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), perTaskTimeout)
	defer cancel()

	if err := w.results.Record(ctx, task, queue.StatusStarted, nil); err != nil {
		// Best effort: the task still runs even if its state is invisible.
		slog.Error("result record failed", "component", "worker", "task_id", task.ID, "error", err)
	}

	if !w.acksLate {
		if err := d.Ack(); err != nil {
			slog.Error("ack failed", "component", "worker", "task_id", task.ID, "error", err)
		}
	}

	if err := handler(ctx, task); err != nil {
		slog.Error("task failed",
			"component", "worker",
			"task", task.Name,
			"task_id", task.ID,
			"error", err,
		)
		if recErr := w.results.Record(ctx, task, queue.StatusFailure, err); recErr != nil {
			slog.Error("result record failed", "component", "worker", "task_id", task.ID, "error", recErr)
		}
		metrics.TasksProcessed.WithLabelValues(task.Name, "failure").Inc()
		if w.acksLate {
			d.Nack()
		}
		return
	}

	if err := w.results.Record(ctx, task, queue.StatusSuccess, nil); err != nil {
		slog.Error("result record failed", "component", "worker", "task_id", task.ID, "error", err)
	}
	metrics.TasksProcessed.WithLabelValues(task.Name, "success").Inc()
	if w.acksLate {
		if err := d.Ack(); err != nil {
			slog.Error("ack failed", "component", "worker", "task_id", task.ID, "error", err)
		}
	}

	slog.Info("task processed", "component", "worker", "task", task.Name, "task_id", task.ID)
}
