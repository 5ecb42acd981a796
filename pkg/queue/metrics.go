package queue

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/workq/pkg/metrics"
)

// instrumentedQueue wraps a Queue with Prometheus metrics collection.
type instrumentedQueue[T any] struct {
	inner    Queue[T]
	name     string
	registry *metrics.Registry
}

// NewInstrumented wraps q so pushes, pops, blocking waits, and depth are
// reported to the given metrics registry under the queue_name label.
// A nil registry uses metrics.DefaultRegistry.
func NewInstrumented[T any](q Queue[T], name string, registry *metrics.Registry) Queue[T] {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}

	iq := &instrumentedQueue[T]{
		inner:    q,
		name:     name,
		registry: registry,
	}
	registry.QueueCapacity.WithLabelValues(name).Set(float64(q.Cap()))
	registry.QueueDepth.WithLabelValues(name).Set(float64(q.Len()))

	return iq
}

func (iq *instrumentedQueue[T]) observePush(err error) error {
	switch {
	case err == nil:
		iq.registry.QueuePushes.WithLabelValues(iq.name).Inc()
	case errors.Is(err, ErrClosed):
		iq.registry.QueueRejected.WithLabelValues(iq.name).Inc()
	}
	iq.registry.QueueDepth.WithLabelValues(iq.name).Set(float64(iq.inner.Len()))
	return err
}

func (iq *instrumentedQueue[T]) observePop(err error) error {
	switch {
	case err == nil:
		iq.registry.QueuePops.WithLabelValues(iq.name).Inc()
	case errors.Is(err, ErrClosed):
		iq.registry.QueueRejected.WithLabelValues(iq.name).Inc()
	}
	iq.registry.QueueDepth.WithLabelValues(iq.name).Set(float64(iq.inner.Len()))
	return err
}

// Push implements Queue.Push.
func (iq *instrumentedQueue[T]) Push(ctx context.Context, item T) error {
	before := iq.inner.Stats().BlockedPushes
	err := iq.inner.Push(ctx, item)
	if iq.inner.Stats().BlockedPushes > before {
		iq.registry.QueueBlockedPushes.WithLabelValues(iq.name).Inc()
	}
	return iq.observePush(err)
}

// TryPush implements Queue.TryPush.
func (iq *instrumentedQueue[T]) TryPush(item T) error {
	return iq.observePush(iq.inner.TryPush(item))
}

// PushTimeout implements Queue.PushTimeout.
func (iq *instrumentedQueue[T]) PushTimeout(item T, timeout time.Duration) error {
	return iq.observePush(iq.inner.PushTimeout(item, timeout))
}

// Pop implements Queue.Pop.
func (iq *instrumentedQueue[T]) Pop(ctx context.Context) (T, error) {
	before := iq.inner.Stats().BlockedPops
	item, err := iq.inner.Pop(ctx)
	if iq.inner.Stats().BlockedPops > before {
		iq.registry.QueueBlockedPops.WithLabelValues(iq.name).Inc()
	}
	return item, iq.observePop(err)
}

// TryPop implements Queue.TryPop.
func (iq *instrumentedQueue[T]) TryPop() (T, bool, error) {
	item, ok, err := iq.inner.TryPop()
	if ok {
		iq.registry.QueuePops.WithLabelValues(iq.name).Inc()
		iq.registry.QueueDepth.WithLabelValues(iq.name).Set(float64(iq.inner.Len()))
	}
	return item, ok, err
}

// PopTimeout implements Queue.PopTimeout.
func (iq *instrumentedQueue[T]) PopTimeout(timeout time.Duration) (T, error) {
	item, err := iq.inner.PopTimeout(timeout)
	return item, iq.observePop(err)
}

// Close implements Queue.Close.
func (iq *instrumentedQueue[T]) Close() error {
	err := iq.inner.Close()
	iq.registry.QueueDepth.WithLabelValues(iq.name).Set(float64(iq.inner.Len()))
	return err
}

// IsClosed implements Queue.IsClosed.
func (iq *instrumentedQueue[T]) IsClosed() bool {
	return iq.inner.IsClosed()
}

// Len implements Queue.Len.
func (iq *instrumentedQueue[T]) Len() int {
	return iq.inner.Len()
}

// Cap implements Queue.Cap.
func (iq *instrumentedQueue[T]) Cap() int {
	return iq.inner.Cap()
}

// Stats implements Queue.Stats.
func (iq *instrumentedQueue[T]) Stats() Stats {
	return iq.inner.Stats()
}
