package queue

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrClosed is returned by Enqueue once the queue has been closed.
var ErrClosed = errors.New("queue closed")

// MemoryQueue is a bounded FIFO. Enqueue blocks while the queue is full;
// Dequeue keeps returning items after Close until the queue is drained and
// then reports io.EOF.
type MemoryQueue[T any] struct {
	ch    chan T
	done  chan struct{}
	depth prometheus.Gauge

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewMemoryQueue creates a queue holding up to capacity items. depth, when
// set, tracks the number of queued items.
func NewMemoryQueue[T any](capacity int, depth prometheus.Gauge) *MemoryQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue[T]{
		ch:    make(chan T, capacity),
		done:  make(chan struct{}),
		depth: depth,
	}
}

func (q *MemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- item:
		q.observe()
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue adds item without blocking and reports whether it was accepted.
func (q *MemoryQueue[T]) TryEnqueue(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- item:
		q.observe()
		return true
	default:
		return false
	}
}

func (q *MemoryQueue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-q.ch:
		if !ok {
			return zero, io.EOF
		}
		q.observe()
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting items. Blocked producers return ErrClosed.
func (q *MemoryQueue[T]) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
	return nil
}

func (q *MemoryQueue[T]) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}

func (q *MemoryQueue[T]) observe() {
	if q.depth != nil {
		q.depth.Set(float64(len(q.ch)))
	}
}
