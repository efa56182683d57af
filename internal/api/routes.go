package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes attaches all application routes to mux.
// Keeping this separate from handlers.go means the full route surface
// is visible at a glance without scrolling through handler logic.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health
	mux.HandleFunc("GET /health", h.Health)

	// Configuration surface
	mux.HandleFunc("GET /api/flags", h.FeatureFlags)

	// Reports
	mux.HandleFunc("POST /api/reports/run", h.RunReport)
	mux.HandleFunc("GET /api/tasks/", h.TaskStatus)

	// Observability
	mux.Handle("GET /metrics", promhttp.Handler())
}
