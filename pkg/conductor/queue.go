package conductor

import (
	"context"
	"sync"
)

// messageQueue is the sole serialization point for all handling logic: an
// ordered FIFO with any number of producers and exactly one consumer. Push
// never blocks while the queue is open; Close stops intake, and the consumer
// keeps draining whatever was already queued.
type messageQueue struct {
	mu     sync.Mutex
	items  []conductorMessage
	wake   chan struct{}
	closed bool
}

func newMessageQueue() *messageQueue {
	return &messageQueue{wake: make(chan struct{}, 1)}
}

// Push appends an item in arrival order. Items pushed after Close are
// silently dropped.
func (q *messageQueue) Push(m conductorMessage) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop returns the next item in push order, blocking while the queue is open
// and empty. ok is false once the queue is closed and drained, or ctx is
// cancelled.
func (q *messageQueue) Pop(ctx context.Context) (conductorMessage, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return m, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close stops intake. Idempotent.
func (q *messageQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}
