package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/workq/pkg/queue"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := p.SubmitWithContext(ctx, task)
	if errors.Is(err, context.DeadlineExceeded) {
		return queue.ErrTimeout
	}
	return err
}

// SubmitWithContext adds a task to the pool for execution with the given
// context. The context bounds the queuing wait and is passed to the task's
// Execute method, enabling timeout and cancellation propagation. If the
// pool has a TaskTimeout configured, the effective timeout is the minimum
// of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()

	if isShutdown {
		return ErrShutdown
	}

	err := p.tasks.Push(ctx, taskWithContext{task: task, ctx: ctx})
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrShutdown
		}
		return err
	}

	atomic.AddInt64(&p.totalSubmitted, 1)
	return nil
}

// Results returns a channel of task results.
func (p *workerPool) Results() <-chan Result {
	return p.resultQueue
}

// Shutdown initiates a graceful shutdown of the pool. Closing the task
// queue is the termination signal: every worker drains remaining tasks
// and exits once the queue reports closure, so no task accepted before
// shutdown is abandoned. Subsequent calls return the same channel.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		p.tasks.Close()

		// Join the workers without holding any lock.
		go func() {
			p.workerWg.Wait()
			p.execCancel()
			close(p.resultQueue)
			close(p.shutdownDone)
		}()
	})

	return p.shutdownDone
}

// ShutdownWithTimeout shuts down the pool gracefully, but once the timeout
// passes it cancels the execution context of remaining tasks so the drain
// finishes promptly. Tasks that ignore their context may still delay the
// join.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	timer := time.AfterFunc(timeout, p.execCancel)
	go func() {
		<-done
		timer.Stop()
	}()

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return p.tasks.Len()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt64(&p.activeWorkers))
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if cb := w.pool.config.OnWorkerStart; cb != nil {
		cb(w.id)
	}
	defer func() {
		if cb := w.pool.config.OnWorkerStop; cb != nil {
			cb(w.id)
		}
	}()

	for {
		twc, err := w.pool.tasks.Pop(context.Background())
		if err != nil {
			// Queue closed and drained; the worker's one exit path.
			return
		}
		w.executeTask(twc)
	}
}

// sendResult delivers a task result without stalling the worker when
// nobody is consuming the results channel.
func (w *worker) sendResult(result Result) {
	select {
	case w.pool.resultQueue <- result:
	case <-time.After(100 * time.Millisecond):
		// Result delivery timed out, which is acceptable when the
		// caller does not read results.
	}
}

// executeTask executes a single task with the provided context. Panics are
// contained here: a failing task body never terminates the worker.
func (w *worker) executeTask(twc taskWithContext) {
	p := w.pool

	atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	if cb := p.config.OnTaskStart; cb != nil {
		cb(w.id, twc.task)
	}

	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			if handler := p.config.PanicHandler; handler != nil {
				handler(twc.task, r)
			} else {
				err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}

		result := Result{
			Task:     twc.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
		}

		atomic.AddInt64(&p.totalCompleted, 1)

		if cb := p.config.OnTaskComplete; cb != nil {
			cb(w.id, result)
		}

		w.sendResult(result)
	}()

	// Start with the caller-provided context.
	ctx := twc.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// Propagate shutdown-deadline cancellation into the task context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.execCtx, cancel)
	defer stop()

	// Apply TaskTimeout if configured.
	// The effective timeout is the minimum of the context deadline and TaskTimeout.
	if p.config.TaskTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer tcancel()
	}

	err = twc.task.Execute(ctx)
}
