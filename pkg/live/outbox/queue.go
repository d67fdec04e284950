// Package outbox holds the buffers between session producers and the single
// goroutine that owns the live connection.
package outbox

import "sync"

// Queue is an unbounded FIFO. Any goroutine may push; one consumer drains.
// Order is preserved per producer.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	closed bool
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends v. It reports false once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
	return true
}

// PushAll appends vs in order as one batch.
func (q *Queue[T]) PushAll(vs []T) bool {
	if len(vs) == 0 {
		return true
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, vs...)
	q.mu.Unlock()
	q.signal()
	return true
}

// Requeue puts vs back at the head of the queue, ahead of anything pushed
// since they were drained.
func (q *Queue[T]) Requeue(vs []T) bool {
	if len(vs) == 0 {
		return true
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	items := make([]T, 0, len(vs)+len(q.items))
	items = append(items, vs...)
	q.items = append(items, q.items...)
	q.mu.Unlock()
	q.signal()
	return true
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready receives a value after a push. Notifications coalesce, so consumers
// drain fully on each wake-up.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Close rejects further pushes. Items already queued can still be drained.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
