package event

import (
	"context"
	"sync"
	"sync/atomic"

	"fswatch/internal/metrics"
)

type QueueOptions struct {
	Registry *metrics.Registry
}

// Queue is an unbounded FIFO with any number of producers and one consumer.
// Send never blocks. After Close, sends are dropped and the channel returned by
// Messages closes once the backlog has been delivered.
type Queue[T any] struct {
	mu        sync.Mutex
	items     []T
	closed    bool
	closeOnce sync.Once
	wake      chan struct{}
	out       chan T
	registry  *metrics.Registry
	sent      atomic.Int64
	dropped   atomic.Int64
}

// NewQueue starts the delivery goroutine. The queue closes when ctx is done.
func NewQueue[T any](ctx context.Context, opts QueueOptions) *Queue[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	queue := &Queue[T]{
		wake:     make(chan struct{}, 1),
		out:      make(chan T),
		registry: opts.Registry,
	}
	go queue.pump()
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			queue.Close()
		}()
	}
	return queue
}

func (q *Queue[T]) Send(item T) {
	if q == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.dropped.Add(1)
		q.registry.IncQueueDropped()
		return
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.sent.Add(1)
	q.signal()
}

// Messages returns the consumer side of the queue.
func (q *Queue[T]) Messages() <-chan T {
	if q == nil {
		ch := make(chan T)
		close(ch)
		return ch
	}
	return q.out
}

func (q *Queue[T]) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.signal()
	})
}

// Len reports items waiting to be delivered.
func (q *Queue[T]) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Sent() int64 {
	if q == nil {
		return 0
	}
	return q.sent.Load()
}

func (q *Queue[T]) Dropped() int64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) pump() {
	defer close(q.out)
	for {
		item, ok := q.next()
		if !ok {
			return
		}
		q.out <- item
	}
}

// next blocks until an item is available or the queue is closed and empty.
func (q *Queue[T]) next() (T, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return item, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			var zero T
			return zero, false
		}
		<-q.wake
	}
}
