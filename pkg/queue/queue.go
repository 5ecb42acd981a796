package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vnykmshr/workq/pkg/common/validation"
)

// ErrClosed is returned when an operation cannot proceed because the
// queue has been closed: every push, and any pop once the buffer has
// drained. It is the normal termination signal for consumers.
var ErrClosed = errors.New("queue is closed")

// ErrFull is returned by TryPush when a bounded queue has no space.
var ErrFull = errors.New("queue is full")

// ErrTimeout is returned by the timed push/pop variants when the wait
// exceeds its bound before the operation can proceed.
var ErrTimeout = errors.New("queue operation timed out")

// Queue is a thread-safe FIFO with optional capacity bound.
//
// A bounded queue applies backpressure: Push blocks while the queue is
// full. A queue created with capacity 0 is unbounded and Push never
// blocks on space. Closing the queue is the single cancellation
// primitive: blocked pushers fail with ErrClosed, poppers drain the
// remaining items in FIFO order and then fail with ErrClosed.
type Queue[T any] interface {
	// Push appends item to the tail, blocking while a bounded queue is
	// full. It fails with ErrClosed if the queue is closed before the
	// item is stored; the item is never partially stored.
	Push(ctx context.Context, item T) error

	// TryPush appends item without blocking. It fails with ErrFull when
	// a bounded queue has no space, and ErrClosed after Close.
	TryPush(item T) error

	// PushTimeout is Push with a bounded wait, failing with ErrTimeout.
	PushTimeout(item T, timeout time.Duration) error

	// Pop removes and returns the head item, blocking while the queue
	// is open and empty. Once the queue is closed and drained it fails
	// with ErrClosed.
	Pop(ctx context.Context) (T, error)

	// TryPop removes the head item without blocking. The bool reports
	// whether an item was returned; an open empty queue yields
	// (zero, false, nil), a drained closed queue (zero, false, ErrClosed).
	TryPop() (T, bool, error)

	// PopTimeout is Pop with a bounded wait, failing with ErrTimeout.
	PopTimeout(timeout time.Duration) (T, error)

	// Close marks the queue closed and wakes every blocked pusher and
	// popper. It is idempotent; closing never blocks.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool

	// Len returns the current number of buffered items. The value is a
	// racy snapshot, useful for diagnostics only.
	Len() int

	// Cap returns the configured capacity (0 = unbounded).
	Cap() int

	// Stats returns queue statistics.
	Stats() Stats
}

// Stats holds counters describing queue activity.
type Stats struct {
	// Pushes is the total number of items stored.
	Pushes int64

	// Pops is the total number of items removed.
	Pops int64

	// BlockedPushes is the number of pushes that had to wait for space.
	BlockedPushes int64

	// BlockedPops is the number of pops that had to wait for an item.
	BlockedPops int64

	// Utilization is len/cap for bounded queues (0.0 to 1.0).
	Utilization float64
}

// initialBufferSize is the starting ring size for unbounded queues.
const initialBufferSize = 16

// queue implements Queue with a single mutex, a circular buffer, and
// two condition variables so producers and consumers wake separately.
type queue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf      []T
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	pushes        int64
	pops          int64
	blockedPushes int64
	blockedPops   int64
}

// New creates an open queue with the given capacity. Capacity 0 means
// unbounded; negative capacities are rejected.
func New[T any](capacity int) (Queue[T], error) {
	if err := validation.ValidateNonNegative("queue", "capacity", capacity); err != nil {
		return nil, err
	}

	size := capacity
	if capacity == 0 {
		size = initialBufferSize
	}

	q := &queue[T]{
		buf:      make([]T, size),
		capacity: capacity,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)

	return q, nil
}

// Push implements Queue.Push.
func (q *queue[T]) Push(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var stop func()
	for q.full() && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stop == nil {
			q.blockedPushes++
			stop = q.watch(ctx)
			defer stop()
		}
		q.notFull.Wait()
	}

	if q.closed {
		return ErrClosed
	}

	q.enqueue(item)
	q.pushes++
	q.notEmpty.Signal()

	return nil
}

// TryPush implements Queue.TryPush.
func (q *queue[T]) TryPush(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.full() {
		return ErrFull
	}

	q.enqueue(item)
	q.pushes++
	q.notEmpty.Signal()

	return nil
}

// PushTimeout implements Queue.PushTimeout.
func (q *queue[T]) PushTimeout(item T, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := q.Push(ctx, item)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Pop implements Queue.Pop.
func (q *queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var stop func()
	for q.count == 0 && !q.closed {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if stop == nil {
			q.blockedPops++
			stop = q.watch(ctx)
			defer stop()
		}
		q.notEmpty.Wait()
	}

	// Closed queues drain in FIFO order before reporting closure.
	if q.count == 0 {
		return zero, ErrClosed
	}

	item := q.dequeue()
	q.pops++
	if q.capacity > 0 {
		q.notFull.Signal()
	}

	return item, nil
}

// TryPop implements Queue.TryPop.
func (q *queue[T]) TryPop() (T, bool, error) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		if q.closed {
			return zero, false, ErrClosed
		}
		return zero, false, nil
	}

	item := q.dequeue()
	q.pops++
	if q.capacity > 0 {
		q.notFull.Signal()
	}

	return item, true, nil
}

// PopTimeout implements Queue.PopTimeout.
func (q *queue[T]) PopTimeout(timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	item, err := q.Pop(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return item, ErrTimeout
	}
	return item, err
}

// Close implements Queue.Close.
func (q *queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	// Every blocked waiter must re-evaluate its predicate.
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()

	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len implements Queue.Len.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap implements Queue.Cap.
func (q *queue[T]) Cap() int {
	return q.capacity
}

// Stats implements Queue.Stats.
func (q *queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Pushes:        q.pushes,
		Pops:          q.pops,
		BlockedPushes: q.blockedPushes,
		BlockedPops:   q.blockedPops,
	}
	if q.capacity > 0 {
		stats.Utilization = float64(q.count) / float64(q.capacity)
	}
	return stats
}

// full reports whether a bounded queue has reached capacity (must hold lock).
func (q *queue[T]) full() bool {
	return q.capacity > 0 && q.count >= q.capacity
}

// enqueue appends item to the tail (must hold lock).
func (q *queue[T]) enqueue(item T) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++

	if q.capacity > 0 && q.count > q.capacity {
		panic("queue: length exceeds capacity")
	}
}

// dequeue removes the head item (must hold lock).
func (q *queue[T]) dequeue() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return item
}

// grow doubles the ring of an unbounded queue (must hold lock).
func (q *queue[T]) grow() {
	next := make([]T, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
	q.tail = q.count
}

// watch wakes all waiters when ctx is canceled so a blocked caller can
// re-check its predicate and return the context error. The returned
// stop function releases the watcher; no goroutine is spawned for
// contexts that cannot be canceled.
func (q *queue[T]) watch(ctx context.Context) func() {
	if ctx.Done() == nil {
		return func() {}
	}

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.notFull.Broadcast()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		case <-finished:
		}
	}()

	return func() { close(finished) }
}
