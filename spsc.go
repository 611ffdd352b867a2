// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

// SPSC is a single-producer single-consumer bounded queue resident in a
// caller-supplied shared-memory region.
//
// Based on Lamport's ring buffer with cached index optimization: the
// producer caches the consumer's head, and vice versa, reducing
// cross-core (and cross-process) cache line traffic. Slots carry no
// sequence tags; head and tail alone order the ring, which is sound
// only under strict single-producer single-consumer discipline.
//
// With overwrite enabled, a full-ring enqueue scans forward from head
// for the first non-important entry and discards through it. This is
// best-effort: important entries sitting between head and the first
// non-important one are discarded with it. Workloads that need the hard
// importance guarantee should use [MPMC], whose strict policy never
// drops an important entry.
//
// Exactly one attacher may enqueue and exactly one may dequeue.
// Violating the discipline corrupts the ring.
type SPSC[T any] struct {
	view
	overwrite  bool
	cachedHead uint64 // producer's conservative view of head
	cachedTail uint64 // consumer's conservative view of tail
}

// AttachSPSC binds an SPSC queue to region, initializing it on first
// attach. The capacity is derived from the region size; overwrite is
// disabled. Use [Attach] with a [Builder] to configure either.
func AttachSPSC[T any](region []byte) (*SPSC[T], error) {
	return attachSPSC[T](region, Options{})
}

func attachSPSC[T any](region []byte, opts Options) (*SPSC[T], error) {
	v, err := attachRegion(region, slotStride[T](), opts.capacity, initSlotOf[T])
	if err != nil {
		return nil, err
	}
	return &SPSC[T]{view: v, overwrite: opts.overwrite}, nil
}

// Enqueue adds an element to the queue (producer only), tagging it
// important when important is set.
//
// Returns ErrWouldBlock when the queue is full — immediately if
// overwrite is disabled, or when every entry is important if it is
// enabled.
func (q *SPSC[T]) Enqueue(elem *T, important bool) error {
	ctrl := q.ctrl()
	tail := ctrl.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.capacity {
		q.cachedHead = ctrl.head.LoadAcquire()
		for tail-q.cachedHead >= q.capacity {
			if !q.overwrite {
				return ErrWouldBlock
			}
			if err := q.evictScan(q.cachedHead, tail); err != nil {
				return err
			}
			q.cachedHead = ctrl.head.LoadAcquire()
		}
	}

	s := (*slot[T])(q.slotPtr(tail))
	s.data = *elem
	s.important.Store(important)
	ctrl.tail.StoreRelease(tail + 1)
	return nil
}

// evictScan walks [head, tail) for the first non-important entry and
// advances head past it, discarding the scanned prefix. Fails when
// every entry is important.
//
// Head moves by CAS on both sides of this ring: the consumer may be
// claiming the same entries concurrently, and whichever party loses the
// CAS re-reads head. A plain store here could rewind the consumer's
// progress and hand the same entry out twice.
func (q *SPSC[T]) evictScan(head, tail uint64) error {
	ctrl := q.ctrl()
	pos := head
	for pos != tail {
		s := (*slot[T])(q.slotPtr(pos))
		if !s.important.Load() {
			break
		}
		pos++
	}
	if pos == tail {
		return ErrWouldBlock
	}
	ctrl.head.CompareAndSwapAcqRel(head, pos+1)
	// On CAS failure the consumer advanced head; the caller re-reads it
	// and re-checks occupancy either way.
	return nil
}

// Dequeue removes and returns the oldest element together with its
// importance flag (consumer only). Returns (zero-value, false,
// ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, bool, error) {
	ctrl := q.ctrl()
	for {
		head := ctrl.head.LoadAcquire()
		if head >= q.cachedTail {
			q.cachedTail = ctrl.tail.LoadAcquire()
			if head >= q.cachedTail {
				var zero T
				return zero, false, ErrWouldBlock
			}
		}

		s := (*slot[T])(q.slotPtr(head))
		elem := s.data
		important := s.important.Load()
		// The copy is valid only if this consumer still owns the entry
		// when head advances: the producer never writes inside
		// [head, tail), and an eviction moves head first.
		if ctrl.head.CompareAndSwapAcqRel(head, head+1) {
			return elem, important, nil
		}
		// Producer evicted past this entry; retry with a fresh head.
	}
}
