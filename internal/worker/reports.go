package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"panorama/internal/models"
	"panorama/internal/queue"
)

// ReportsImport is the import name the built-in report tasks register under.
const ReportsImport = "panorama.reports"

// ReportStore is the database surface the report tasks need.
// *database.DB implements it.
type ReportStore interface {
	DueReports(ctx context.Context) ([]models.Report, error)
	MarkReportRun(ctx context.Context, reportID int64) error
	LogReportRun(ctx context.Context, reportID int64, status string) error
	PruneReportLog(ctx context.Context) (int64, error)
}

// ResultWriter stores rendered report documents. *cache.FileStore
// implements it.
type ResultWriter interface {
	Set(key string, value []byte) error
}

// ReportTasks bundles the dependencies of the built-in report tasks.
type ReportTasks struct {
	Store   ReportStore
	Pub     queue.Publisher
	Results ResultWriter
	DryRun  bool // suppress notification delivery, still render and log
}

// Register adds the report tasks under the panorama.reports import.
func (rt *ReportTasks) Register(reg *Registry) {
	reg.Register(ReportsImport, "reports.scheduler", rt.schedule)
	reg.Register(ReportsImport, "reports.run", rt.run)
	reg.Register(ReportsImport, "reports.prune_log", rt.pruneLog)
}

// schedule sweeps for due reports and enqueues one run per report.
func (rt *ReportTasks) schedule(ctx context.Context, _ *queue.Task) error {
	due, err := rt.Store.DueReports(ctx)
	if err != nil {
		return fmt.Errorf("worker: list due reports: %w", err)
	}

	for _, rep := range due {
		task, err := queue.NewTask("reports.run", models.ReportRun{ReportID: rep.ID, Name: rep.Name})
		if err != nil {
			return err
		}
		if err := rt.Pub.Publish(ctx, task); err != nil {
			return fmt.Errorf("worker: enqueue report %s: %w", rep.Name, err)
		}
		slog.Info("report run enqueued", "component", "worker", "report", rep.Name, "task_id", task.ID)
	}
	return nil
}

// run renders one report, stores the document in the results store, and
// stamps the schedule so the sweep does not pick it up again.
func (rt *ReportTasks) run(ctx context.Context, task *queue.Task) error {
	var req models.ReportRun
	if err := json.Unmarshal(task.Payload, &req); err != nil {
		return fmt.Errorf("worker: decode report run payload: %w", err)
	}

	doc, err := json.Marshal(map[string]any{
		"report_id":    req.ReportID,
		"name":         req.Name,
		"generated_at": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := rt.Results.Set(fmt.Sprintf("report:%d", req.ReportID), doc); err != nil {
		return fmt.Errorf("worker: store report document: %w", err)
	}

	if rt.DryRun {
		slog.Info("dry run, notification suppressed", "component", "worker", "report", req.Name)
	}

	if err := rt.Store.LogReportRun(ctx, req.ReportID, "success"); err != nil {
		return fmt.Errorf("worker: log report run: %w", err)
	}
	if err := rt.Store.MarkReportRun(ctx, req.ReportID); err != nil {
		return fmt.Errorf("worker: mark report run: %w", err)
	}

	slog.Info("report generated", "component", "worker", "report", req.Name)
	return nil
}

// pruneLog removes report execution rows past the retention window.
func (rt *ReportTasks) pruneLog(ctx context.Context, _ *queue.Task) error {
	n, err := rt.Store.PruneReportLog(ctx)
	if err != nil {
		return fmt.Errorf("worker: prune report log: %w", err)
	}
	slog.Info("report log pruned", "component", "worker", "rows", n)
	return nil
}
