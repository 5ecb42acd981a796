/*
Package workerpool provides a fixed-size worker pool that drains a
bounded task queue.

A pool owns the consumer side of a queue.Queue of tasks: it starts a
fixed number of worker goroutines at construction, each repeatedly
popping and executing tasks. Arbitrary goroutines may hold the producer
side concurrently through Submit.

Basic usage:

	pool, err := workerpool.New(4, 100) // 4 workers, queue capacity 100
	if err != nil {
		log.Fatal(err)
	}
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("failed to submit: %v", err)
	}

	result := <-pool.Results()
	if result.Error != nil {
		log.Printf("task failed: %v", result.Error)
	}

Lifecycle:

The pool moves Created -> Running at construction and Running ->
Stopped through Shutdown. Shutdown closes the task queue, which is the
only termination signal workers receive: each worker keeps draining
queued tasks and exits when the queue reports closed-and-empty, so
nothing accepted before shutdown is abandoned and no worker can spin on
an empty queue without being told to stop. The channel returned by
Shutdown closes once every worker has exited; receive from it to join.

After shutdown begins, Submit fails with ErrShutdown immediately. It
never blocks and never drops a task silently.

Fault isolation:

A panic inside a task body is recovered at the execution site and
reported through the task's Result (or handed to a configured
PanicHandler). One misbehaving task never terminates its worker or the
pool.

Queue capacity applies backpressure to submitters: when the queue is
full, Submit blocks until a worker frees space, the submission context
ends, or the pool shuts down.
*/
package workerpool
