package mindmap

import (
	"context"
	"sync"
)

// op is one queued background operation. done closes after fn returns.
type op struct {
	name string
	fn   func(context.Context)
	done chan struct{}
}

// opQueue is an unbounded FIFO, so gesture handlers never block on enqueue.
type opQueue struct {
	mu     sync.Mutex
	items  []op
	closed bool
	wake   chan struct{}
}

func newOpQueue() *opQueue {
	return &opQueue{wake: make(chan struct{}, 1)}
}

func (q *opQueue) push(o op) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, o)
	q.mu.Unlock()
	q.signal()
	return true
}

// pop returns the next op. When the queue is empty, closed reports whether
// no more ops will arrive.
func (q *opQueue) pop() (o op, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return op{}, false, q.closed
	}
	o = q.items[0]
	q.items[0] = op{}
	q.items = q.items[1:]
	return o, true, false
}

func (q *opQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// discard releases waiters of ops that will never run.
func (q *opQueue) discard() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	for _, o := range items {
		close(o.done)
	}
}

func (q *opQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func doneChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
