// Package correlate pairs replies with waiters over a shared stream of
// (id, message) pairs. A reply published under an id reaches exactly one
// waiter on that id; concurrent waiters on different ids never observe each
// other's messages.
package correlate

import (
	"context"
	"sync"
)

// DefaultBacklogDepth bounds how many unconsumed messages are parked per id
// when no waiter is registered. One in-flight message per direction plus
// headroom; beyond it the oldest parked message is dropped.
const DefaultBacklogDepth = 8

// Bus matches published messages to waiters by correlation id.
type Bus[K comparable, M any] struct {
	mu      sync.Mutex
	waiters map[K][]chan M
	backlog map[K][]M
	depth   int
}

// Option customizes bus construction.
type Option[K comparable, M any] func(*Bus[K, M])

// WithBacklogDepth overrides the per-id parked message cap.
func WithBacklogDepth[K comparable, M any](depth int) Option[K, M] {
	return func(b *Bus[K, M]) {
		if depth > 0 {
			b.depth = depth
		}
	}
}

// New builds a bus.
func New[K comparable, M any](opts ...Option[K, M]) *Bus[K, M] {
	b := &Bus[K, M]{
		waiters: map[K][]chan M{},
		backlog: map[K][]M{},
		depth:   DefaultBacklogDepth,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Publish hands msg to the oldest waiter on id, or parks it when nobody is
// waiting yet. Parking is bounded: when the backlog for an id is full the
// oldest parked message is dropped, so publishers never block. Callers that
// need delivery guarantees pair Publish with a deadlined AwaitReply.
func (b *Bus[K, M]) Publish(id K, msg M) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if queue := b.waiters[id]; len(queue) > 0 {
		ch := queue[0]
		if len(queue) == 1 {
			delete(b.waiters, id)
		} else {
			b.waiters[id] = queue[1:]
		}
		// the channel is buffered, delivery cannot block under the lock
		ch <- msg
		return
	}

	b.parkLocked(id, msg)
}

// AwaitReply blocks until a message is published under id or ctx is done.
// The waiter is removed the moment it is matched, so a second publish under
// the same id goes to the next waiter, never to a stale one.
func (b *Bus[K, M]) AwaitReply(ctx context.Context, id K) (M, error) {
	b.mu.Lock()

	if parked := b.backlog[id]; len(parked) > 0 {
		msg := parked[0]
		if len(parked) == 1 {
			delete(b.backlog, id)
		} else {
			b.backlog[id] = parked[1:]
		}
		b.mu.Unlock()
		return msg, nil
	}

	ch := make(chan M, 1)
	b.waiters[id] = append(b.waiters[id], ch)
	b.mu.Unlock()

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		b.mu.Lock()
		b.removeWaiter(id, ch)
		// a publish may have landed between ctx firing and the lock; the
		// message must not vanish with this waiter
		select {
		case msg := <-ch:
			b.parkLocked(id, msg)
		default:
		}
		b.mu.Unlock()

		var zero M
		return zero, ctx.Err()
	}
}

// Pending reports how many messages are parked under id. Mostly useful in
// tests and diagnostics.
func (b *Bus[K, M]) Pending(id K) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.backlog[id])
}

func (b *Bus[K, M]) removeWaiter(id K, ch chan M) {
	queue := b.waiters[id]
	for i, w := range queue {
		if w == ch {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(b.waiters, id)
	} else {
		b.waiters[id] = queue
	}
}

func (b *Bus[K, M]) parkLocked(id K, msg M) {
	parked := append(b.backlog[id], msg)
	if len(parked) > b.depth {
		parked = parked[1:]
	}
	b.backlog[id] = parked
}
