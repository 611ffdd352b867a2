// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/spin"
)

// MPMC is a multi-producer multi-consumer bounded queue resident in a
// caller-supplied shared-memory region.
//
// Uses per-slot sequence numbers, which provide:
//   - Full ABA safety via sequence-based validation
//   - Safety under any number of producers and consumers, in-process
//     or across address spaces mapping the same region
//   - Lock-free progress: a stalled attacher cannot block others
//     indefinitely
//
// Entries carry an importance flag. With overwrite enabled, an enqueue
// on a full ring discards the oldest entry in its place — unless that
// entry is important, in which case the enqueue fails. An important
// entry leaves the queue only through Dequeue.
//
// Memory: capacity slots, each strided to a cache line.
type MPMC[T any] struct {
	view
	overwrite bool
}

// AttachMPMC binds an MPMC queue to region, initializing it on first
// attach. The capacity is derived from the region size; overwrite is
// disabled. Use [Attach] with a [Builder] to configure either.
//
// A fresh region must be zero-filled and its base must be 64-byte
// aligned. All participants must map the region with identical relative
// layout and use the same element type T. T must not contain pointers.
func AttachMPMC[T any](region []byte) (*MPMC[T], error) {
	return attachMPMC[T](region, Options{})
}

func attachMPMC[T any](region []byte, opts Options) (*MPMC[T], error) {
	v, err := attachRegion(region, slotStride[T](), opts.capacity, initSlotOf[T])
	if err != nil {
		return nil, err
	}
	return &MPMC[T]{view: v, overwrite: opts.overwrite}, nil
}

func initSlotOf[T any](p unsafe.Pointer, i uint64) {
	s := (*slot[T])(p)
	s.seq.StoreRelaxed(i)
	s.important.Store(false)
}

// Enqueue adds an element to the queue, tagging it important when
// important is set. The element is copied into the region.
//
// Returns ErrWouldBlock when the queue is full — immediately if
// overwrite is disabled, or after finding the oldest entry important
// when it is enabled.
func (q *MPMC[T]) Enqueue(elem *T, important bool) error {
	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		tail := ctrl.tail.LoadAcquire()
		s := (*slot[T])(q.slotPtr(tail))
		seq := s.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			// Slot ready for writing at this position.
			if ctrl.tail.CompareAndSwapAcqRel(tail, tail+1) {
				s.data = *elem
				s.important.Store(important)
				s.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if diff < 0 {
			// Ring full at this position.
			if !q.overwrite {
				return ErrWouldBlock
			}
			if err := q.evictOldest(); err != nil {
				return err
			}
		}
		// diff > 0: another producer claimed the position; retry with
		// a fresh tail.
		sw.Once()
	}
}

// evictOldest frees one slot for a full-ring enqueue by discarding the
// entry at head, refusing if that entry is important.
//
// Eviction is a consumer-side step: the full slot stays owned by its
// position until head advances and the sequence is re-published, so a
// racing Dequeue of the same position either wins the head CAS (and
// the eviction retries) or loses it (and re-reads head). Torn payloads
// are impossible.
func (q *MPMC[T]) evictOldest() error {
	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		head := ctrl.head.LoadAcquire()
		s := (*slot[T])(q.slotPtr(head))
		seq := s.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if s.important.LoadAcquire() {
				return ErrWouldBlock
			}
			if ctrl.head.CompareAndSwapAcqRel(head, head+1) {
				s.important.Store(false)
				s.seq.StoreRelease(head + q.capacity)
				return nil
			}
		} else if diff < 0 {
			// Consumers drained the ring since the full check; nothing
			// left to evict, the enqueue can retry directly.
			return nil
		}
		// diff > 0: a consumer claimed this position; retry with a
		// fresh head.
		sw.Once()
	}
}

// Dequeue removes and returns the oldest element together with its
// importance flag. Returns (zero-value, false, ErrWouldBlock) if the
// queue is empty.
//
// The slot payload is not zeroed on removal: element types are
// pointer-free by contract, so there is nothing to release to the
// collector.
func (q *MPMC[T]) Dequeue() (T, bool, error) {
	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		head := ctrl.head.LoadAcquire()
		s := (*slot[T])(q.slotPtr(head))
		seq := s.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			// Slot ready for reading at this position.
			if ctrl.head.CompareAndSwapAcqRel(head, head+1) {
				elem := s.data
				important := s.important.Load()
				s.important.Store(false)
				s.seq.StoreRelease(head + q.capacity)
				return elem, important, nil
			}
		} else if diff < 0 {
			var zero T
			return zero, false, ErrWouldBlock
		}
		// diff > 0: another consumer claimed the position; retry with
		// a fresh head.
		sw.Once()
	}
}
