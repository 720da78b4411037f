// SPDX-License-Identifier: EPL-2.0

// Package spsc provides a lock-free, single-producer/single-consumer ring
// buffer used to carry ownership of audio blocks and control messages
// between a realtime client goroutine and a non-realtime IO server
// goroutine.
package spsc

import "sync/atomic"

// Ring is a bounded lock-free SPSC queue. Exactly one goroutine may call
// Push; exactly one (possibly different) goroutine may call TryPop. Any
// other usage pattern is undefined.
//
// Capacity is rounded up to the next power of two so that index wrapping
// can use a mask instead of a modulo.
type Ring[T any] struct {
	buf  []T
	mask uint64

	head atomic.Uint64 // next slot to write, owned by the producer
	tail atomic.Uint64 // next slot to read, owned by the consumer
}

// New creates a Ring able to hold at least capacity items without blocking.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}

	size := nextPowerOfTwo(capacity)

	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size) - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}

	p := 1
	for p < n {
		p *= 2
	}

	return p
}

// Cap returns the number of slots the ring can hold.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len returns the number of items currently queued. Safe to call from
// either side; the result may be stale by the time it is read.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// IsFull reports whether Push would currently fail.
func (r *Ring[T]) IsFull() bool {
	return r.Len() >= len(r.buf)
}

// Slots returns the number of free slots available to Push right now.
func (r *Ring[T]) Slots() int {
	return len(r.buf) - r.Len()
}

// Push enqueues v. It never blocks and never allocates; it reports false if
// the ring is full, in which case v is not enqueued and ownership stays
// with the caller.
func (r *Ring[T]) Push(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		return false
	}

	r.buf[head&r.mask] = v
	r.head.Store(head + 1)

	return true
}

// TryPop dequeues the oldest item. It never blocks. ok is false if the ring
// was empty.
func (r *Ring[T]) TryPop() (v T, ok bool) {
	tail := r.tail.Load()
	head := r.head.Load()

	if tail >= head {
		return v, false
	}

	v = r.buf[tail&r.mask]
	r.buf[tail&r.mask] = *new(T) // release any pointer held in the slot
	r.tail.Store(tail + 1)

	return v, true
}
