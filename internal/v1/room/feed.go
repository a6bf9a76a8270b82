package room

import (
	"container/list"
	"context"
	"sync"
)

// queue is an unbounded FIFO of marshaled frames for one user. Pushes never
// block, so broadcasts can run under the room lock without caring how slow
// any one reader is. A closed queue drains its remaining frames and then
// reports done.
type queue struct {
	mu     sync.Mutex
	buf    *list.List
	wake   chan struct{}
	closed bool
}

func newQueue() *queue {
	return &queue{
		buf:  list.New(),
		wake: make(chan struct{}, 1),
	}
}

// push appends a frame. Frames pushed after close are dropped.
func (q *queue) push(frame []byte) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf.PushBack(frame)
	q.mu.Unlock()

	q.signal()
}

// close marks the queue finished. Already-buffered frames stay readable;
// next reports ok=false once they drain. Idempotent.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next blocks until a frame is available, the queue is finished, or ctx is
// canceled. Single consumer only.
func (q *queue) next(ctx context.Context) ([]byte, bool) {
	for {
		q.mu.Lock()
		if front := q.buf.Front(); front != nil {
			q.buf.Remove(front)
			frame := front.Value.([]byte)
			q.mu.Unlock()
			return frame, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Feed delivers one user's frames in the order the room enqueued them.
// A Feed has a single consumer; Next must not be called concurrently.
type Feed struct {
	q *queue
}

// Next returns the next frame for the user. ok is false once the room has
// finished the feed and the buffer is drained, or once ctx is canceled.
// Frames must be treated as read-only; broadcasts share one buffer across
// all recipients.
func (f *Feed) Next(ctx context.Context) ([]byte, bool) {
	return f.q.next(ctx)
}
