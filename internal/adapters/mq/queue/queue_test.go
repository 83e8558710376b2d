package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	at := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	q := NewInMemoryQueue(WithClock(func() time.Time { return at }))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	r, queued, err := q.Enqueue(ctx, OriginStartup)
	if err != nil || !queued {
		t.Fatalf("expected enqueue to succeed, queued=%v err=%v", queued, err)
	}
	if r.ID == "" || r.Origin != OriginStartup || !r.RequestedAt.Equal(at) {
		t.Errorf("unexpected request %+v", r)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != r.ID {
		t.Errorf("expected %s, got %s", r.ID, got.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Coalesces(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	first, queued, _ := q.Enqueue(ctx, OriginManual)
	if !queued {
		t.Fatal("expected first request to be queued")
	}
	for i := 0; i < 5; i++ {
		r, queued, err := q.Enqueue(ctx, OriginPeriodic)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if queued {
			t.Fatal("expected request to coalesce while one is pending")
		}
		if r.ID != first.ID {
			t.Errorf("expected pending request %s, got %s", first.ID, r.ID)
		}
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected a single pending request, got %d", l)
	}

	<-q.Dequeue(ctx)
	if _, queued, _ := q.Enqueue(ctx, OriginManual); !queued {
		t.Error("expected a new request once the pending one was taken")
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	_, a, _ := q.Enqueue(ctx, OriginManual)
	second, b, _ := q.Enqueue(ctx, OriginManual)
	third, c, _ := q.Enqueue(ctx, OriginManual)
	if !a || !b || c {
		t.Fatalf("expected two queued and one coalesced, got %v %v %v", a, b, c)
	}
	if third.ID != second.ID {
		t.Errorf("expected coalescing into the newest pending request")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	queuedCount := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, queued, _ := q.Enqueue(ctx, OriginManual); queued {
				mu.Lock()
				queuedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if queuedCount != 1 {
		t.Errorf("expected exactly one queued request, got %d", queuedCount)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if _, _, err := q.Enqueue(ctx, OriginManual); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected dequeue channel to be closed")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := NewInMemoryQueue().Enqueue(cancelled, OriginManual); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
