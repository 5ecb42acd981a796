// Package metrics provides Prometheus instrumentation for workq components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for workq components.
type Registry struct {
	// Queue Metrics
	QueueDepth         *prometheus.GaugeVec
	QueueCapacity      *prometheus.GaugeVec
	QueuePushes        *prometheus.CounterVec
	QueuePops          *prometheus.CounterVec
	QueueBlockedPushes *prometheus.CounterVec
	QueueBlockedPops   *prometheus.CounterVec
	QueueRejected      *prometheus.CounterVec

	// Worker Pool Metrics
	TasksSubmitted        *prometheus.CounterVec
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	WorkerPoolQueued      *prometheus.GaugeVec

	// Scheduler Metrics
	ScheduledEntries  *prometheus.GaugeVec
	ScheduledFirings  *prometheus.CounterVec
	ScheduledMisfires *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by workq components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Queue Metrics
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Current number of items buffered in the queue",
			},
			[]string{"queue_name"},
		),

		QueueCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "capacity",
				Help:      "Configured queue capacity (0 = unbounded)",
			},
			[]string{"queue_name"},
		),

		QueuePushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "pushes_total",
				Help:      "Total number of items pushed into the queue",
			},
			[]string{"queue_name"},
		),

		QueuePops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "pops_total",
				Help:      "Total number of items popped from the queue",
			},
			[]string{"queue_name"},
		),

		QueueBlockedPushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "blocked_pushes_total",
				Help:      "Total number of pushes that had to wait for space",
			},
			[]string{"queue_name"},
		),

		QueueBlockedPops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "blocked_pops_total",
				Help:      "Total number of pops that had to wait for an item",
			},
			[]string{"queue_name"},
		),

		QueueRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "queue",
				Name:      "rejected_total",
				Help:      "Total number of operations rejected because the queue was closed",
			},
			[]string{"queue_name"},
		),

		// Worker Pool Metrics
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted to the pool",
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"pool_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed",
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Configured worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of workers currently executing tasks",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),

		// Scheduler Metrics
		ScheduledEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "workq",
				Subsystem: "scheduler",
				Name:      "entries",
				Help:      "Number of registered cron entries",
			},
			[]string{"scheduler_name"},
		),

		ScheduledFirings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "scheduler",
				Name:      "firings_total",
				Help:      "Total number of cron entry firings",
			},
			[]string{"scheduler_name"},
		),

		ScheduledMisfires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "workq",
				Subsystem: "scheduler",
				Name:      "misfires_total",
				Help:      "Total number of firings whose submission to the pool failed",
			},
			[]string{"scheduler_name"},
		),
	}
}
