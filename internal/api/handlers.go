package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"panorama/internal/cache"
	"panorama/internal/config"
	"panorama/internal/models"
	"panorama/internal/queue"
)

// healthTimeout caps the backend pings behind GET /health.
const healthTimeout = 2 * time.Second

// flagsCacheKey is where the serialized flag payload lives in the cache.
const flagsCacheKey = "feature_flags"

// ---------------------------------------------------------------------------
// Dependency interfaces
//
// Each interface captures exactly the methods this package needs.
// Callers (main, tests) inject the real implementations or fakes.
// ---------------------------------------------------------------------------

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FlagCache caches the serialized feature-flag payload.
type FlagCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// TaskPublisher enqueues background tasks.
type TaskPublisher interface {
	Publish(ctx context.Context, task *queue.Task) error
}

// TaskResults reads task outcomes from the result backend.
type TaskResults interface {
	Get(ctx context.Context, taskID string) (*queue.Result, error)
}

// Handler holds every dependency the HTTP layer needs. All fields are
// interfaces except the resolved configuration, which is read-only.
type Handler struct {
	DB        Pinger
	Cache     FlagCache
	Publisher TaskPublisher
	Results   TaskResults
	Config    *config.Config
}

// Health — GET /health
//
// Reports 200 when the metadata database answers a ping, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FeatureFlags — GET /api/flags
//
// Serves the effective feature-flag table. The payload is cached with the
// configured default timeout; flags only change on redeploy, so a short
// cache window is safe.
func (h *Handler) FeatureFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if data, err := h.Cache.Get(ctx, flagsCacheKey); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(data)
		return
	} else if !errors.Is(err, cache.ErrNotFound) {
		slog.Error("flag cache read failed", "component", "api", "error", err)
	}

	data, err := json.Marshal(h.Config.FeatureFlags)
	if err != nil {
		http.Error(w, "failed to encode flags", http.StatusInternalServerError)
		return
	}
	if err := h.Cache.Set(ctx, flagsCacheKey, data); err != nil {
		// Non-fatal: the response is still served from the config.
		slog.Error("flag cache write failed", "component", "api", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(data)
}

// RunReport — POST /api/reports/run
//
// Enqueues an ad-hoc report run and returns 202 with the task ID. The
// caller polls GET /api/tasks/{id} for the outcome.
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRun
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "missing report name", http.StatusBadRequest)
		return
	}

	task, err := queue.NewTask("reports.run", req)
	if err != nil {
		http.Error(w, "failed to build task", http.StatusInternalServerError)
		return
	}

	if err := h.Publisher.Publish(r.Context(), task); err != nil {
		slog.Error("task enqueue failed", "component", "api", "task_id", task.ID, "error", err)
		http.Error(w, "failed to enqueue report", http.StatusInternalServerError)
		return
	}

	slog.Info("report run accepted", "component", "api", "report", req.Name, "task_id", task.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"task_id": task.ID,
	})
}

// TaskStatus — GET /api/tasks/{id}
//
// Returns the recorded state of a task from the result backend.
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if taskID == "" {
		http.Error(w, "missing task ID", http.StatusBadRequest)
		return
	}

	res, err := h.Results.Get(r.Context(), taskID)
	if errors.Is(err, queue.ErrResultNotFound) {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("result lookup failed", "component", "api", "task_id", taskID, "error", err)
		http.Error(w, "result backend error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
