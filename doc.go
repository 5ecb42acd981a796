/*
Package workq provides a bounded, thread-safe task queue and worker pool
for coordinating producers and consumers in concurrent applications.

Core packages:

Queueing (pkg/queue):
  - Queue: generic bounded FIFO with blocking push/pop, backpressure,
    and a coordinated close lifecycle

Task Execution (pkg/workerpool):
  - Pool: fixed-size worker pool draining a task queue, with graceful
    drain-then-stop shutdown and per-task panic isolation

Scheduling (pkg/scheduler):
  - Scheduler: cron-based periodic task submission into a pool

Observability (pkg/metrics):
  - Prometheus instrumentation for queues and pools

Example usage:

	import (
		"github.com/vnykmshr/workq/pkg/workerpool"
	)

	pool, _ := workerpool.New(5, 100) // 5 workers, queue capacity 100

	pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		return process(ctx)
	}))

	<-pool.Shutdown() // drain queued tasks, join all workers
*/
package workq
