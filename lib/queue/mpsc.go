package queue

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the linked list
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// MPSC is a lock-free multi-producer single-consumer queue.
// Producers append to the tail of a linked list, a background goroutine
// pops from the head and hands the values to the consumer channel.
type MPSC[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
	size atomic.Int64

	out     chan T
	closed  atomic.Bool
	abort   chan struct{}
	abortMu sync.Once

	// wakes the forwarding goroutine when it ran out of values
	mu   sync.Mutex
	cond *sync.Cond
}

// NewMPSC creates a new queue and starts its forwarding goroutine
func NewMPSC[T any]() *MPSC[T] {
	sentinel := &node[T]{}

	q := &MPSC[T]{
		out:   make(chan T),
		abort: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.forward()

	return q
}

// Push appends a value to the queue.
// It returns false if the queue is closed.
func (q *MPSC[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	n := &node[T]{value: value}
	var spins uint8

	// counted before it becomes visible so Len never drops below the real size
	q.size.Add(1)

	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// losing this CAS is fine, another producer moved the tail already
				q.tail.CompareAndSwap(tail, n)
				q.wake()
				return true
			}
		} else {
			// a producer appended but did not move the tail yet: help it
			q.tail.CompareAndSwap(tail, next)
		}

		// exponential backoff under contention
		if spins < 8 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Recv returns the channel values are delivered on. It is closed after
// Close once all values were delivered, or immediately after Abort.
func (q *MPSC[T]) Recv() <-chan T {
	return q.out
}

// Close rejects further pushes. Values already queued are still delivered.
func (q *MPSC[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// Abort rejects further pushes and discards all queued values.
// Use it when the consumer stopped receiving.
func (q *MPSC[T]) Abort() {
	q.closed.Store(true)
	q.abortMu.Do(func() { close(q.abort) })
	q.wake()
}

// IsClosed returns true if the queue is closed or aborted
func (q *MPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of values pushed but not yet taken by the forwarding
// goroutine. A consumer that sees 0 right after a receive has no value waiting.
func (q *MPSC[T]) Len() int {
	return int(q.size.Load())
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// wake signals the forwarding goroutine. Signalling under the mutex prevents
// a lost wakeup between its emptiness check and cond.Wait.
func (q *MPSC[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// forward moves values from the list to the out channel until the queue is
// closed and empty or aborted
func (q *MPSC[T]) forward() {
	defer close(q.out)

	var zero T
	for {
		head := q.head.Load()
		next := head.next.Load()

		if next != nil {
			value := next.value
			q.head.Store(next)

			// the new head is a sentinel now, drop its reference
			next.value = zero
			q.size.Add(-1)

			select {
			case q.out <- value:
			case <-q.abort:
				return
			}
			continue
		}

		select {
		case <-q.abort:
			return
		default:
		}
		if q.closed.Load() {
			return
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}
