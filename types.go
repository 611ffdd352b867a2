// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

// Queue is the combined producer-consumer interface for a region-bound
// queue.
//
// Queue provides non-blocking Enqueue and Dequeue plus approximate
// observation. Both operations return ErrWouldBlock when they cannot
// proceed (queue full or empty); the core never blocks and never
// retries internally — retry policy belongs to the caller.
//
// Example:
//
//	q, err := shmq.Attach[int](region, shmq.New().Overwrite())
//	if err != nil {
//	    return err
//	}
//
//	v := 42
//	if err := q.Enqueue(&v, false); err != nil {
//	    // Queue full and its oldest entry is important
//	}
//
//	elem, important, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem, important)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]

	// Cap returns the queue capacity.
	Cap() int

	// IsEmpty reports whether the queue currently appears empty.
	// Approximate under concurrency.
	IsEmpty() bool

	// SizeApprox returns the apparent number of queued entries.
	// A non-linearizable hint, suitable for monitoring only.
	SizeApprox() uint64
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs on
// the way in; the queue copies the pointed-to value into the region, so
// the original can be modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking), tagging it
	// important when important is set. In the MPMC variants an
	// important entry is never discarded by overwrite; it leaves the
	// queue only via Dequeue. The SPSC variant's scanning eviction
	// discards important entries that precede the first non-important
	// one.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	Enqueue(elem *T, important bool) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value, copied out of the region together
// with its importance flag.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest element and its
	// importance flag (non-blocking).
	// Returns (zero-value, false, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, bool, error)
}
