package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"panorama/internal/cache"
	"panorama/internal/config"
	"panorama/internal/database"
	"panorama/internal/queue"
	"panorama/internal/worker"
)

// querylabResultTTL is how long rendered report documents stay readable in
// the filesystem results store.
const querylabResultTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load(nil, nil)
	if err != nil {
		slog.Error("configuration failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	// ── Infrastructure ─────────────────────────────────────────────────────────

	db, err := database.Connect(cfg.DatabaseURI)
	if err != nil {
		slog.Error("database connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	// The scheduler task fans due reports back into the queue, so the
	// worker needs a publisher of its own.
	publisher, err := queue.NewPublisher(cfg.TaskQueue.BrokerURL)
	if err != nil {
		slog.Error("broker connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewConsumer(cfg.TaskQueue.BrokerURL, cfg.TaskQueue.WorkerPrefetchMultiplier)
	if err != nil {
		slog.Error("broker connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	results, err := queue.NewResults(cfg.TaskQueue.ResultBackendURL)
	if err != nil {
		slog.Error("result backend connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	resultsStore, err := cache.NewFileStore(cfg.ResultsStorePath, querylabResultTTL)
	if err != nil {
		slog.Error("results store init failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	// ── Task registry ──────────────────────────────────────────────────────────

	reg := worker.NewRegistry()
	reportTasks := &worker.ReportTasks{
		Store:   db,
		Pub:     publisher,
		Results: resultsStore,
		DryRun:  cfg.AlertReportsDryRun,
	}
	reportTasks.Register(reg)

	handlers := reg.Resolve(cfg.TaskQueue.Imports)

	// ── Run ────────────────────────────────────────────────────────────────────
	//
	// ctx is cancelled on SIGINT/SIGTERM, which causes Run to finish the
	// in-flight task and return cleanly before connections close.

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(consumer, results, handlers, cfg.TaskQueue.TaskAcksLate)
	if err := w.Run(ctx); err != nil {
		slog.Error("worker error", "component", "worker", "error", err)
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// Run() has returned — the consume loop is done.
	// Close connections in reverse init order.

	results.Close()
	consumer.Close()
	publisher.Close()
	db.Conn.Close()

	slog.Info("worker stopped", "component", "worker")
}
