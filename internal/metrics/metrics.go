package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Audit entries persisted, by action",
		},
		[]string{"action"},
	)

	AuditAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_append_failures_total",
			Help: "Audit entries dropped because persistence failed",
		},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Pending jobs in the background worker queue",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(AuditEntriesTotal)
	prometheus.MustRegister(AuditAppendFailures)
	prometheus.MustRegister(WorkerQueueDepth)
}
