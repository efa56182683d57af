package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TasksEnqueued counts tasks handed to the broker, labelled by task name.
var TasksEnqueued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "panorama_tasks_enqueued_total",
		Help: "Tasks published to the broker",
	},
	[]string{"task"},
)

// TasksProcessed counts worker outcomes per task name.
// status is one of: success, failure, unknown.
var TasksProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "panorama_tasks_processed_total",
		Help: "Tasks consumed by the worker",
	},
	[]string{"task", "status"},
)

// CacheRequests counts cache lookups per backend, split into hits and misses.
var CacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "panorama_cache_requests_total",
		Help: "Cache lookups by backend and result",
	},
	[]string{"backend", "result"},
)
