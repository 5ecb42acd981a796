package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/workq/internal/testutil"
	wqerrors "github.com/vnykmshr/workq/pkg/common/errors"
)

func TestNew(t *testing.T) {
	q, err := New[int](10)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, q.Cap(), 10)
	testutil.AssertEqual(t, q.Len(), 0)
	testutil.AssertEqual(t, q.IsClosed(), false)
}

func TestNewUnbounded(t *testing.T) {
	q, err := New[string](0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, q.Cap(), 0)
}

func TestNewNegativeCapacity(t *testing.T) {
	_, err := New[int](-1)
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, wqerrors.IsValidationError(err), true)
}

func TestFIFOOrder(t *testing.T) {
	q, err := New[int](10)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		testutil.AssertNoError(t, q.Push(ctx, i))
	}
	testutil.AssertEqual(t, q.Len(), 5)

	for i := 1; i <= 5; i++ {
		got, err := q.Pop(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, i)
	}
	testutil.AssertEqual(t, q.Len(), 0)
}

func TestTryPushTryPop(t *testing.T) {
	q, err := New[string](2)
	testutil.AssertNoError(t, err)
	defer q.Close()

	testutil.AssertNoError(t, q.TryPush("hello"))
	testutil.AssertNoError(t, q.TryPush("world"))
	testutil.AssertEqual(t, q.TryPush("overflow"), ErrFull)

	val, ok, err := q.TryPop()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, val, "hello")

	// Empty open queue: no item, no error.
	empty, err := New[int](1)
	testutil.AssertNoError(t, err)
	defer empty.Close()

	_, ok, err = empty.TryPop()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, false)
}

func TestPushBlocksWhenFull(t *testing.T) {
	q, err := New[int](2)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()

	testutil.AssertNoError(t, q.Push(ctx, 1))
	testutil.AssertNoError(t, q.Push(ctx, 2))

	var blocked int32
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		atomic.StoreInt32(&blocked, 1)
		q.Push(ctx, 3)
		atomic.StoreInt32(&blocked, 0)
	}()

	// Give the goroutine time to block on the full queue.
	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, atomic.LoadInt32(&blocked), int32(1))
	testutil.AssertEqual(t, q.Len(), 2)

	// Popping frees space and unblocks the pending push.
	val, err := q.Pop(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, val, 1)

	wg.Wait()
	testutil.AssertEqual(t, atomic.LoadInt32(&blocked), int32(0))

	// Drain order is [2, 3].
	val, err = q.Pop(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, val, 2)

	val, err = q.Pop(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, val, 3)
}

func TestCapacityNeverExceeded(t *testing.T) {
	const capacity = 4
	q, err := New[int](capacity)
	testutil.AssertNoError(t, err)

	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				q.Push(ctx, base+i)
			}
		}(p * 100)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8*25; i++ {
			_, err := q.Pop(ctx)
			if err != nil {
				return
			}
			if n := q.Len(); n > capacity {
				t.Errorf("observed length %d above capacity %d", n, capacity)
				return
			}
		}
	}()

	wg.Wait()
	<-done
	q.Close()
}

func TestCloseDrainsBeforeFailing(t *testing.T) {
	q, err := New[int](10)
	testutil.AssertNoError(t, err)

	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		testutil.AssertNoError(t, q.Push(ctx, i))
	}

	testutil.AssertNoError(t, q.Close())
	testutil.AssertEqual(t, q.IsClosed(), true)

	// Push fails immediately on a closed queue.
	testutil.AssertEqual(t, q.Push(ctx, 4), ErrClosed)
	testutil.AssertEqual(t, q.TryPush(4), ErrClosed)

	// Buffered items drain in FIFO order.
	for i := 1; i <= 3; i++ {
		got, err := q.Pop(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, i)
	}

	// The queue is now drained; pop reports closure.
	_, err = q.Pop(ctx)
	testutil.AssertEqual(t, err, ErrClosed)

	_, _, err = q.TryPop()
	testutil.AssertEqual(t, err, ErrClosed)
}

func TestCloseWakesBlockedPoppers(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)

	ctx := context.Background()

	const poppers = 3
	results := make(chan error, poppers)
	for i := 0; i < poppers; i++ {
		go func() {
			_, err := q.Pop(ctx)
			results <- err
		}()
	}

	// All poppers block on the empty queue; close must wake every one.
	time.Sleep(20 * time.Millisecond)
	testutil.AssertNoError(t, q.Close())

	for i := 0; i < poppers; i++ {
		select {
		case err := <-results:
			testutil.AssertEqual(t, err, ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("blocked popper was not woken by close")
		}
	}
}

func TestCloseWakesBlockedPusher(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)

	ctx := context.Background()
	testutil.AssertNoError(t, q.Push(ctx, 1))

	result := make(chan error, 1)
	go func() {
		result <- q.Push(ctx, 2)
	}()

	time.Sleep(20 * time.Millisecond)
	testutil.AssertNoError(t, q.Close())

	select {
	case err := <-result:
		testutil.AssertEqual(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked pusher was not woken by close")
	}

	// The rejected item was not stored; the buffered one still drains.
	val, err := q.Pop(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, val, 1)
	testutil.AssertEqual(t, q.Len(), 0)
}

func TestDoubleClose(t *testing.T) {
	q, err := New[int](5)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, q.Close())
	testutil.AssertEqual(t, q.IsClosed(), true)

	// Second close is a no-op.
	testutil.AssertNoError(t, q.Close())
	testutil.AssertEqual(t, q.IsClosed(), true)
}

func TestUnboundedNoDataLoss(t *testing.T) {
	q, err := New[int](0)
	testutil.AssertNoError(t, err)

	ctx := context.Background()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				// Unique tag per item.
				q.Push(ctx, id*perProducer+i)
			}
		}(p)
	}
	wg.Wait()

	testutil.AssertEqual(t, q.Len(), producers*perProducer)
	testutil.AssertNoError(t, q.Close())

	seen := make(map[int]bool, producers*perProducer)
	for {
		v, err := q.Pop(ctx)
		if err != nil {
			testutil.AssertEqual(t, err, ErrClosed)
			break
		}
		if seen[v] {
			t.Fatalf("item %d popped twice", v)
		}
		seen[v] = true
	}
	testutil.AssertEqual(t, len(seen), producers*perProducer)
}

func TestUnboundedPushNeverBlocks(t *testing.T) {
	q, err := New[int](0)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()

	// Push well past the initial ring size to exercise growth.
	for i := 0; i < 1000; i++ {
		testutil.AssertNoError(t, q.Push(ctx, i))
	}
	testutil.AssertEqual(t, q.Len(), 1000)

	for i := 0; i < 1000; i++ {
		got, err := q.Pop(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, got, i)
	}
}

func TestRingReuse(t *testing.T) {
	q, err := New[int](3)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()

	// Fill and empty repeatedly to cycle head and tail through the ring.
	for round := 0; round < 4; round++ {
		for i := 0; i < 3; i++ {
			testutil.AssertNoError(t, q.Push(ctx, round*3+i))
		}
		for i := 0; i < 3; i++ {
			got, err := q.Pop(ctx)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, got, round*3+i)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)
	defer q.Close()

	// Pre-canceled context fails without blocking.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	testutil.AssertEqual(t, q.Push(canceled, 1), context.Canceled)
	_, err = q.Pop(canceled)
	testutil.AssertEqual(t, err, context.Canceled)

	// Cancellation wakes a blocked pop.
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		result <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		testutil.AssertEqual(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("blocked pop was not woken by cancellation")
	}
}

func TestContextCancellationWakesPush(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)
	defer q.Close()

	testutil.AssertNoError(t, q.Push(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- q.Push(ctx, 2)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		testutil.AssertEqual(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("blocked push was not woken by cancellation")
	}
	testutil.AssertEqual(t, q.Len(), 1)
}

func TestPushPopTimeout(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)
	defer q.Close()

	// Pop on an empty queue times out.
	_, err = q.PopTimeout(20 * time.Millisecond)
	testutil.AssertEqual(t, err, ErrTimeout)

	// Push on a full queue times out without storing the item.
	testutil.AssertNoError(t, q.PushTimeout(1, 20*time.Millisecond))
	testutil.AssertEqual(t, q.PushTimeout(2, 20*time.Millisecond), ErrTimeout)
	testutil.AssertEqual(t, q.Len(), 1)

	// A successful timed pop returns the buffered item.
	val, err := q.PopTimeout(20 * time.Millisecond)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, val, 1)
}

func TestTimeoutOnClosedQueue(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, q.Close())

	// Closure wins over the timeout: the error is ErrClosed, immediately.
	start := time.Now()
	testutil.AssertEqual(t, q.PushTimeout(1, time.Second), ErrClosed)
	_, err = q.PopTimeout(time.Second)
	testutil.AssertEqual(t, err, ErrClosed)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("closed queue operations blocked for %v", elapsed)
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q, err := New[int](16)
	testutil.AssertNoError(t, err)

	ctx := context.Background()
	const producers = 6
	const consumers = 6
	const perProducer = 150

	var pushed, popped, sum int64
	var expected int64
	for i := 0; i < producers*perProducer; i++ {
		expected += int64(i)
	}

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Push(ctx, id*perProducer+i); err == nil {
					atomic.AddInt64(&pushed, 1)
				}
			}
		}(p)
	}

	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			for i := 0; i < producers * perProducer / consumers; i++ {
				v, err := q.Pop(ctx)
				if err != nil {
					return
				}
				atomic.AddInt64(&popped, 1)
				atomic.AddInt64(&sum, int64(v))
			}
		}()
	}

	wg.Wait()
	q.Close()

	testutil.AssertEqual(t, atomic.LoadInt64(&pushed), int64(producers*perProducer))
	testutil.AssertEqual(t, atomic.LoadInt64(&popped), int64(producers*perProducer))
	testutil.AssertEqual(t, atomic.LoadInt64(&sum), expected)
}

func TestStats(t *testing.T) {
	q, err := New[int](5)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()

	stats := q.Stats()
	testutil.AssertEqual(t, stats.Pushes, int64(0))
	testutil.AssertEqual(t, stats.Pops, int64(0))

	testutil.AssertNoError(t, q.Push(ctx, 1))
	testutil.AssertNoError(t, q.Push(ctx, 2))

	stats = q.Stats()
	testutil.AssertEqual(t, stats.Pushes, int64(2))
	testutil.AssertEqual(t, stats.Utilization, 0.4) // 2/5

	_, err = q.Pop(ctx)
	testutil.AssertNoError(t, err)

	stats = q.Stats()
	testutil.AssertEqual(t, stats.Pops, int64(1))
	testutil.AssertEqual(t, stats.Utilization, 0.2) // 1/5
}

func TestBlockedPushStats(t *testing.T) {
	q, err := New[int](1)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()
	testutil.AssertNoError(t, q.Push(ctx, 1))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Push(ctx, 2)
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = q.Pop(ctx)
	testutil.AssertNoError(t, err)
	wg.Wait()

	testutil.AssertEqual(t, q.Stats().BlockedPushes > 0, true)
}

func TestZeroValueItems(t *testing.T) {
	q, err := New[*int](2)
	testutil.AssertNoError(t, err)
	defer q.Close()

	ctx := context.Background()
	testutil.AssertNoError(t, q.Push(ctx, nil))

	got, err := q.Pop(ctx)
	testutil.AssertNoError(t, err)
	if got != nil {
		t.Fatalf("expected nil item, got %v", got)
	}
}

func ExampleQueue() {
	q, _ := New[string](2)

	ctx := context.Background()
	q.Push(ctx, "first")
	q.Push(ctx, "second")
	q.Close()

	for {
		item, err := q.Pop(ctx)
		if err != nil {
			break
		}
		fmt.Println(item)
	}
	// Output:
	// first
	// second
}

// Benchmark tests
func BenchmarkPush(b *testing.B) {
	q, _ := New[int](0)
	defer q.Close()

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(ctx, i)
	}
}

func BenchmarkPop(b *testing.B) {
	q, _ := New[int](0)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		q.Push(ctx, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Pop(ctx)
	}
}

func BenchmarkPushPopParallel(b *testing.B) {
	q, _ := New[int](1024)
	defer q.Close()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := q.TryPush(1); err == nil {
				continue
			}
			q.TryPop()
		}
	})
}
