/*
Package queue provides a bounded, thread-safe FIFO for handing work
between producer and consumer goroutines.

The queue is the synchronization core of workq: a circular buffer
guarded by one mutex, with separate wait conditions for "space
available" and "item available" so producers and consumers wake
independently. Every blocking wait re-checks its predicate after each
wakeup, so spurious and stale wakeups are harmless.

Backpressure:

A queue created with a positive capacity blocks producers when full
instead of growing without bound or dropping items:

	q, err := queue.New[Job](50)
	if err != nil {
		log.Fatal(err)
	}

	// Blocks while the queue is full.
	if err := q.Push(ctx, job); err != nil {
		// queue.ErrClosed: the queue was shut down
	}

Capacity 0 creates an unbounded queue whose Push never waits for space.

Closing:

Close is the single cancellation primitive. It is idempotent and wakes
every blocked pusher and popper. After Close, pushes fail immediately
with ErrClosed; pops keep draining buffered items in FIFO order and
only fail once the queue is empty. This makes "closed and drained" the
natural termination signal for consumer loops:

	for {
		item, err := q.Pop(ctx)
		if err != nil {
			break // drained and closed
		}
		process(item)
	}

Non-blocking and timed variants:

TryPush and TryPop never wait. PushTimeout and PopTimeout bound the
wait and fail with ErrTimeout, for callers that cannot rely on a
context deadline.

All operations are safe for concurrent use. Items dequeue in strict
insertion order; no global ordering is promised across racing
producers beyond the order in which their pushes are serialized.
*/
package queue
