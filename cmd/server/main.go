package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"panorama/internal/api"
	"panorama/internal/cache"
	"panorama/internal/config"
	"panorama/internal/database"
	"panorama/internal/queue"
	"panorama/internal/worker"
)

func main() {
	// Fail fast: a missing required variable or a broken override file
	// aborts here, before anything dials out.
	cfg, err := config.Load(nil, nil)
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	// ── Infrastructure ─────────────────────────────────────────────────────────

	db, err := database.Connect(cfg.DatabaseURI)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}

	flagCache, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		slog.Error("cache connect failed", "error", err)
		os.Exit(1)
	}

	publisher, err := queue.NewPublisher(cfg.TaskQueue.BrokerURL)
	if err != nil {
		slog.Error("broker connect failed", "error", err)
		os.Exit(1)
	}

	results, err := queue.NewResults(cfg.TaskQueue.ResultBackendURL)
	if err != nil {
		slog.Error("result backend connect failed", "error", err)
		os.Exit(1)
	}

	// ── Beat scheduler ─────────────────────────────────────────────────────────

	beat, err := worker.StartBeat(cfg.TaskQueue.BeatSchedule, publisher)
	if err != nil {
		slog.Error("invalid beat schedule", "error", err)
		os.Exit(1)
	}

	// ── HTTP server ────────────────────────────────────────────────────────────

	h := &api.Handler{
		DB:        db,
		Cache:     flagCache,
		Publisher: publisher,
		Results:   results,
		Config:    cfg,
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server started", "component", "server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "component", "server", "error", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// Shutdown order matters:
	//  1. Stop accepting new HTTP requests — in-flight requests finish.
	//  2. Stop the beat scheduler — waits for a running enqueue to complete
	//     before returning, so the publisher is not closed mid-publish.
	//  3. Close infrastructure clients in reverse init order.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "server")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "server", "error", err)
	}

	<-beat.Stop().Done()
	slog.Info("beat stopped", "component", "server")

	results.Close()
	publisher.Close()
	flagCache.Close()
	db.Conn.Close()

	slog.Info("shutdown complete", "component", "server")
}
