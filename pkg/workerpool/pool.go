package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vnykmshr/workq/pkg/common/validation"
	"github.com/vnykmshr/workq/pkg/queue"
)

// ErrShutdown is returned by the submit methods once shutdown has begun.
// Submissions are rejected explicitly, never silently dropped.
var ErrShutdown = errors.New("worker pool is shut down")

// Task represents a unit of work that can be executed by a worker.
// A task is executed at most once; ownership of its captured state
// passes from the submitter through the queue to the executing worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that can execute tasks concurrently.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// Returns ErrShutdown if the pool is shut down.
	Submit(task Task) error

	// SubmitWithTimeout submits a task with a timeout for queuing.
	// If the task cannot be queued within the timeout, it returns
	// queue.ErrTimeout.
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context applies to the queuing operation and is also passed to
	// the task's Execute method.
	SubmitWithContext(ctx context.Context, task Task) error

	// Results returns a channel of task results.
	// The channel is closed when the pool is shut down and all tasks are complete.
	Results() <-chan Result

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks are accepted; queued tasks are drained and executed.
	// Returns a channel that closes once every worker has exited.
	// Receiving from it gives synchronous join semantics:
	//
	//	<-pool.Shutdown()
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout shuts down the pool gracefully, but cancels the
	// contexts of remaining tasks once the timeout passes.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// If 0, an unbounded queue is used (not recommended for production).
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// BufferedResults determines if results should be buffered.
	// If true, results are sent to a buffered channel to prevent blocking.
	// Buffer size equals worker count.
	BufferedResults bool

	// PanicHandler is called when a task panics during execution.
	// If nil, panics are recovered and reported as task errors.
	PanicHandler func(task Task, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	// Useful for per-worker initialization (e.g., database connections).
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	// Useful for per-worker cleanup.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// taskWithContext carries a task together with its submission context.
type taskWithContext struct {
	task Task
	ctx  context.Context
}

// workerPool implements the Pool interface. Shutdown is unified with
// queue closure: closing the task queue is the only stop signal workers
// receive, and they observe it only after the queue has drained.
type workerPool struct {
	config Config

	tasks        queue.Queue[taskWithContext]
	resultQueue  chan Result
	shutdownOnce sync.Once
	shutdownDone chan struct{}

	// execCtx is canceled when a shutdown deadline passes, aborting
	// in-flight and still-queued task executions.
	execCtx    context.Context
	execCancel context.CancelFunc

	mu         sync.RWMutex
	isShutdown bool

	activeWorkers  int64
	totalSubmitted int64
	totalCompleted int64

	workerWg sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and
// queue capacity (0 = unbounded).
func New(workerCount, queueSize int) (Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
// The pool transitions to running immediately: all workers are started and
// draining the task queue before NewWithConfig returns.
func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "workerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("workerpool", "queueSize", config.QueueSize); err != nil {
		return nil, err
	}

	tasks, err := queue.New[taskWithContext](config.QueueSize)
	if err != nil {
		return nil, err
	}

	var resultQueue chan Result
	if config.BufferedResults {
		resultQueue = make(chan Result, config.WorkerCount)
	} else {
		resultQueue = make(chan Result)
	}

	execCtx, execCancel := context.WithCancel(context.Background())

	pool := &workerPool{
		config:       config,
		tasks:        tasks,
		resultQueue:  resultQueue,
		shutdownDone: make(chan struct{}),
		execCtx:      execCtx,
		execCancel:   execCancel,
	}

	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}

	return pool, nil
}
