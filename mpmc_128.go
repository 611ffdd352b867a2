// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// importantFlag marks a packed entry as undroppable. Values are limited
// to the remaining 63 bits.
const importantFlag uint64 = 1 << 63

// MPMCIndirect is a region-resident MPMC queue for uintptr values —
// pool indices, handles, or offsets into another shared region. Raw
// pointers are meaningless across address spaces; pass indices.
//
// Uses 128-bit atomic entries packing the sequence tag and the value,
// reducing atomics per operation from 2-3 to 1.
//
// Entry format: [lo=sequence | hi=importance bit 63 + 63-bit value]
//
// Memory: capacity slots, one 16-byte entry (sequence and value) per
// cache-line slot.
type MPMCIndirect struct {
	view
	overwrite bool
}

type indirectSlot struct {
	entry atomix.Uint128 // lo=seq, hi=flag|value
	_     [regionAlign - 16]byte
}

const indirectStride = unsafe.Sizeof(indirectSlot{})

// AttachMPMCIndirect binds an MPMCIndirect queue to region, initializing
// it on first attach. The capacity is derived from the region size;
// overwrite is disabled. Use [Builder.AttachIndirect] to configure
// either.
func AttachMPMCIndirect(region []byte) (*MPMCIndirect, error) {
	return attachIndirect(region, Options{})
}

func attachIndirect(region []byte, opts Options) (*MPMCIndirect, error) {
	v, err := attachRegion(region, indirectStride, opts.capacity, initIndirectSlot)
	if err != nil {
		return nil, err
	}
	return &MPMCIndirect{view: v, overwrite: opts.overwrite}, nil
}

func initIndirectSlot(p unsafe.Pointer, i uint64) {
	// seq[i] = i (ready for write at round 0), value empty.
	(*indirectSlot)(p).entry.StoreRelaxed(i, 0)
}

// Enqueue adds a value to the queue, tagging it important when
// important is set.
//
// Values must fit in 63 bits (high bit must be 0).
// Returns ErrWouldBlock when the queue is full — immediately if
// overwrite is disabled, or after finding the oldest entry important
// when it is enabled.
func (q *MPMCIndirect) Enqueue(elem uintptr, important bool) error {
	if uint64(elem)&importantFlag != 0 {
		panic("shmq: value exceeds 63 bits")
	}
	packed := uint64(elem)
	if important {
		packed |= importantFlag
	}

	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		tail := ctrl.tail.LoadAcquire()
		s := (*indirectSlot)(q.slotPtr(tail))
		seqLo, valHi := s.entry.LoadAcquire()
		diff := int64(seqLo) - int64(tail)

		if diff == 0 {
			// Single CAS updates the sequence and stores the value.
			if s.entry.CompareAndSwapAcqRel(seqLo, valHi, tail+1, packed) {
				// Help advance tail for other producers.
				ctrl.tail.CompareAndSwapRelaxed(tail, tail+1)
				return nil
			}
		} else if diff < 0 {
			if !q.overwrite {
				return ErrWouldBlock
			}
			if err := q.evictOldest(); err != nil {
				return err
			}
		}
		// diff > 0: another producer succeeded; retry with fresh tail.
		sw.Once()
	}
}

// evictOldest discards the entry at head so a full-ring enqueue can
// proceed, refusing if that entry carries the importance bit.
func (q *MPMCIndirect) evictOldest() error {
	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		head := ctrl.head.LoadAcquire()
		s := (*indirectSlot)(q.slotPtr(head))
		seqLo, valHi := s.entry.LoadAcquire()
		diff := int64(seqLo) - int64(head+1)

		if diff == 0 {
			if valHi&importantFlag != 0 {
				return ErrWouldBlock
			}
			if s.entry.CompareAndSwapAcqRel(seqLo, valHi, head+q.capacity, 0) {
				ctrl.head.CompareAndSwapRelaxed(head, head+1)
				return nil
			}
		} else if diff < 0 {
			// Ring drained since the full check; the enqueue retries.
			return nil
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest value together with its
// importance flag. Returns (0, false, ErrWouldBlock) if the queue is
// empty.
func (q *MPMCIndirect) Dequeue() (uintptr, bool, error) {
	ctrl := q.ctrl()
	sw := spin.Wait{}
	for {
		head := ctrl.head.LoadAcquire()
		s := (*indirectSlot)(q.slotPtr(head))
		seqLo, valHi := s.entry.LoadAcquire()
		diff := int64(seqLo) - int64(head+1)

		if diff == 0 {
			if s.entry.CompareAndSwapAcqRel(seqLo, valHi, head+q.capacity, 0) {
				ctrl.head.CompareAndSwapRelaxed(head, head+1)
				return uintptr(valHi &^ importantFlag), valHi&importantFlag != 0, nil
			}
		} else if diff < 0 {
			return 0, false, ErrWouldBlock
		}
		sw.Once()
	}
}
