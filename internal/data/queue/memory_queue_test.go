package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue[string](2, nil)
	t.Cleanup(func() { _ = q.Close() })

	ctx := context.Background()
	for _, item := range []string{"a.java", "b.java"} {
		if err := q.Enqueue(ctx, item); err != nil {
			t.Fatalf("enqueue %s: %v", item, err)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 queued items, got %d", q.Len())
	}

	for _, want := range []string{"a.java", "b.java"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestMemoryQueue_FullQueueBlocksUntilContextDone(t *testing.T) {
	q := NewMemoryQueue[int](1, nil)
	t.Cleanup(func() { _ = q.Close() })

	if !q.TryEnqueue(1) {
		t.Fatal("expected first item to be accepted")
	}
	if q.TryEnqueue(2) {
		t.Fatal("expected a full queue to reject TryEnqueue")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueue_CloseUnblocksProducers(t *testing.T) {
	q := NewMemoryQueue[int](1, nil)
	_ = q.TryEnqueue(1)

	errCh := make(chan error, 1)
	go func() { errCh <- q.Enqueue(context.Background(), 2) }()

	time.Sleep(10 * time.Millisecond)
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("producer still blocked after close")
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue[string](2, nil)
	if err := q.Enqueue(context.Background(), "a.java"); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := q.Enqueue(context.Background(), "b.java"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}

	got, err := q.Dequeue(context.Background())
	if err != nil || got != "a.java" {
		t.Fatalf("expected drained item, got %q %v", got, err)
	}
	if _, err := q.Dequeue(context.Background()); err != io.EOF {
		t.Fatalf("expected io.EOF on empty closed queue, got %v", err)
	}
}

func TestMemoryQueue_TracksDepth(t *testing.T) {
	depth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_queue_depth"})
	q := NewMemoryQueue[int](4, depth)
	t.Cleanup(func() { _ = q.Close() })

	_ = q.TryEnqueue(1)
	_ = q.TryEnqueue(2)
	if got := testutil.ToFloat64(depth); got != 2 {
		t.Fatalf("expected depth 2, got %v", got)
	}
	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(depth); got != 1 {
		t.Fatalf("expected depth 1, got %v", got)
	}
}
