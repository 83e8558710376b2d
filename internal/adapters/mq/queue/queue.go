// Package queue carries snapshot refresh requests to the refresh worker.
//
// Refreshes are idempotent, so the queue coalesces: while a request is
// pending, further requests are answered with the pending one instead of
// queuing another fetch.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ipa27/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1
)

// Refresh origins.
const (
	OriginStartup  = "startup"
	OriginManual   = "manual"
	OriginPeriodic = "periodic"
	OriginPeer     = "peer"
)

// Request asks the worker to refresh the snapshot.
type Request struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	RequestedAt time.Time `json:"requested_at"`
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue queues a refresh request for origin. It returns the request
	// that will serve the caller and whether it was newly queued; false
	// means the caller was coalesced into an already pending request.
	Enqueue(ctx context.Context, origin string) (Request, bool, error)

	// Dequeue returns the channel the worker receives requests from. It is
	// closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the number of pending requests.
	Len(ctx context.Context) int

	// Close stops accepting requests.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	now      func() time.Time

	mu     sync.Mutex
	last   Request
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)
	metrics.UpdateRefreshPending(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, origin string) (Request, bool, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordRefreshRequest(origin, "rejected")
		return Request{}, false, fmt.Errorf("enqueue refresh: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordRefreshRequest(origin, "rejected")
		metrics.RecordErrorByComponent("queue", "closed")
		return Request{}, false, ErrClosed
	}

	r := Request{ID: uuid.NewString(), Origin: origin, RequestedAt: q.now()}
	select {
	case q.requests <- r:
		q.last = r
		metrics.RecordRefreshRequest(origin, "queued")
		metrics.UpdateRefreshPending(len(q.requests))
		return r, true, nil
	default:
		metrics.RecordRefreshRequest(origin, "coalesced")
		return q.last, false, nil
	}
}

// Dequeue implements Queue.Dequeue. The request channel is handed out
// directly so a request waiting on a busy worker still counts as pending.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Request {
	return q.requests
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.requests)
}

// Close implements Queue.Close.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
