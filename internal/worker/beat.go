package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"panorama/internal/config"
	"panorama/internal/metrics"
	"panorama/internal/queue"

	"github.com/robfig/cron/v3"
)

// publishTimeout bounds each scheduled enqueue so a stalled broker cannot
// pile up cron goroutines.
const publishTimeout = 10 * time.Second

// StartBeat registers every schedule-table entry with the cron runner and
// starts it. An invalid cron expression is a configuration error, returned
// so main() can fail fast with a clear message.
//
// The returned *cron.Cron must be stopped on shutdown:
//
//	c, err := worker.StartBeat(cfg.TaskQueue.BeatSchedule, publisher)
//	defer c.Stop()
func StartBeat(schedule map[string]config.ScheduleEntry, pub queue.Publisher) (*cron.Cron, error) {
	c := cron.New()

	for name, entry := range schedule {
		_, err := c.AddFunc(entry.Schedule, func() {
			task, err := queue.NewTask(entry.Task, nil)
			if err != nil {
				slog.Error("task build failed", "component", "beat", "task", entry.Task, "error", err)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()

			if err := pub.Publish(ctx, task); err != nil {
				slog.Error("task enqueue failed", "component", "beat", "task", entry.Task, "error", err)
				return
			}
			metrics.TasksEnqueued.WithLabelValues(entry.Task).Inc()
			slog.Info("task enqueued", "component", "beat", "task", entry.Task, "task_id", task.ID)
		})
		if err != nil {
			return nil, fmt.Errorf("worker: schedule %s (%q): %w", name, entry.Schedule, err)
		}
	}

	c.Start()
	slog.Info("beat scheduler started", "component", "beat", "entries", len(schedule))
	return c, nil
}
