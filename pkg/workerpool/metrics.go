package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/workq/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
// Metrics can be toggled on a live pool; the state is read under a lock
// because workers consult it while executing tasks.
type MetricsPool struct {
	pool Pool
	name string

	mu       sync.RWMutex
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a new worker pool with metrics enabled.
// A separate registry is used per pool to avoid collector conflicts.
func NewWithMetrics(workerCount, queueSize int, name string) (Pool, error) {
	registry := prometheus.NewRegistry()
	config := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	}, name, config)
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (Pool, error) {
	basePool, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}

	if !metricsConfig.Enabled {
		return basePool, nil
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	mp := &MetricsPool{
		pool:     basePool,
		name:     name,
		registry: registry,
		enabled:  true,
	}

	mp.updateMetrics()

	return mp, nil
}

// metricsState returns the current registry and enabled flag as a
// consistent pair.
func (mp *MetricsPool) metricsState() (*metrics.Registry, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.registry, mp.enabled
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	registry, enabled := mp.metricsState()
	if !enabled {
		return
	}

	registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return mp.SubmitWithContext(ctx, task)
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.pool.SubmitWithContext(ctx, nil)
	}

	err := mp.pool.SubmitWithContext(ctx, &metricsTask{original: task, pool: mp})

	registry, enabled := mp.metricsState()
	if enabled {
		if err == nil {
			registry.TasksSubmitted.WithLabelValues(mp.name).Inc()
		}
		mp.updateMetrics()
	}

	return err
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original Task
	pool     *MetricsPool
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) error {
	start := time.Now()

	err := mt.original.Execute(ctx)

	registry, enabled := mt.pool.metricsState()
	if enabled {
		registry.TaskExecutionDuration.WithLabelValues(mt.pool.name).Observe(time.Since(start).Seconds())
		registry.TasksExecuted.WithLabelValues(mt.pool.name).Inc()

		if err != nil {
			registry.TasksFailed.WithLabelValues(mt.pool.name).Inc()
		} else {
			registry.TasksCompleted.WithLabelValues(mt.pool.name).Inc()
		}

		mt.pool.updateMetrics()
	}

	return err
}

// Results returns a channel of task results.
func (mp *MetricsPool) Results() <-chan Result {
	return mp.pool.Results()
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownWithTimeout shuts down the pool with a timeout.
func (mp *MetricsPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	return mp.pool.ShutdownWithTimeout(timeout)
}

// Size returns the number of workers in the pool.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	queueSize := mp.pool.QueueSize()

	registry, enabled := mp.metricsState()
	if enabled {
		registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(queueSize))
	}

	return queueSize
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	activeWorkers := mp.pool.ActiveWorkers()

	registry, enabled := mp.metricsState()
	if enabled {
		registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(activeWorkers))
	}

	return activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}

// EnableMetrics enables metrics collection.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	mp.mu.Lock()
	mp.enabled = config.Enabled
	if config.Registry != nil {
		mp.registry = metrics.NewRegistry(config.Registry)
	}
	enabled := mp.enabled
	mp.mu.Unlock()

	if enabled {
		mp.updateMetrics()
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.mu.Lock()
	mp.enabled = false
	mp.mu.Unlock()
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
