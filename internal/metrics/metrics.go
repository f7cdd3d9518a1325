// Package metrics holds the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powersplit_computations_total",
			Help: "Allocation runs per policy (memoised results are not counted)",
		},
		[]string{"policy"},
	)

	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powersplit_warnings_total",
			Help: "Warnings raised by allocation runs per kind",
		},
		[]string{"kind"},
	)

	LocalWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powersplit_local_writes_total",
			Help: "Local blob writes per result",
		},
		[]string{"result"},
	)

	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powersplit_sync_operations_total",
			Help: "Remote store operations per op (load, save, insert) and result",
		},
		[]string{"op", "result"},
	)

	SyncStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "powersplit_sync_status",
			Help: "1 for the current remote sync status, 0 for the others",
		},
		[]string{"status"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powersplit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds per route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ResultLabel maps an error to the result label.
func ResultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
