// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Region initialization states, stored in controlBlock.initState.
// A freshly created region must be zero bytes, which makes it stateRaw.
const (
	stateRaw          int32 = iota // untouched region
	stateInitializing              // claimed by exactly one attacher
	stateReady                     // control block and slots are valid
)

// regionAlign is the required alignment of the region base and the
// stride granularity of the slot array. One cache line.
const regionAlign = 64

// controlBlock is the shared header at offset 0 of every region.
//
// head and tail are unbounded monotone positions; the physical slot
// index is position mod capacity. Keeping them monotone lets the ring
// tell full from empty without a separate count. Each sits on its own
// cache line.
//
// capacity is plain (non-atomic): the bootstrap winner writes it before
// the initState release store, and every other attacher reads it only
// after an acquire load observes stateReady.
type controlBlock struct {
	initState atomix.Int32
	_         [4]byte
	capacity  uint64
	_         pad
	head      atomix.Uint64
	_         pad
	tail      atomix.Uint64
	_         pad
}

// pad is cache line padding to prevent false sharing.
type pad [regionAlign]byte

// controlSize is the control block footprint, padded to a slot boundary.
const controlSize = (unsafe.Sizeof(controlBlock{}) + regionAlign - 1) &^ (regionAlign - 1)

// slot is one ring cell: a sequence tag, the importance flag, and the
// payload. Slots are strided to cache-line multiples within the region.
//
// The sequence tag encodes ownership: seq == pos means writable at
// position pos, seq == pos+1 means readable at position pos. A dequeue
// at pos re-publishes seq = pos + capacity, making the cell writable
// again for the next lap.
type slot[T any] struct {
	seq       atomix.Uint64
	important atomix.Bool
	data      T
}

// slotStride returns the byte distance between consecutive slots of
// element type T.
func slotStride[T any]() uintptr {
	return (unsafe.Sizeof(slot[T]{}) + regionAlign - 1) &^ (regionAlign - 1)
}

// RequiredSize returns the region size in bytes needed for a queue of
// element type T with the given capacity.
//
// T must be trivially copyable and must not contain pointers: the
// region is shared across address spaces and is never scanned by the
// garbage collector.
func RequiredSize[T any](capacity int) int {
	if capacity < 1 {
		panic("shmq: capacity must be >= 1")
	}
	return int(controlSize + uintptr(capacity)*slotStride[T]())
}

// RequiredSizeIndirect returns the region size in bytes needed for an
// MPMCIndirect queue with the given capacity.
func RequiredSizeIndirect(capacity int) int {
	if capacity < 1 {
		panic("shmq: capacity must be >= 1")
	}
	return int(controlSize + uintptr(capacity)*indirectStride)
}

// view is a bound window into a caller-supplied region.
//
// The handle owns nothing: the region's lifetime is the caller's
// contract, and all addresses are derived from the backing slice on
// demand. Copying a view is safe; both copies address the same region.
type view struct {
	mem      []byte
	stride   uintptr
	capacity uint64
}

func (v *view) base() unsafe.Pointer {
	return unsafe.Pointer(&v.mem[0])
}

func (v *view) ctrl() *controlBlock {
	return (*controlBlock)(v.base())
}

// slotPtr returns the slot for an unbounded position.
func (v *view) slotPtr(pos uint64) unsafe.Pointer {
	off := controlSize + uintptr(pos%v.capacity)*v.stride
	return unsafe.Pointer(uintptr(v.base()) + off)
}

// IsEmpty reports whether the queue currently appears empty.
// Approximate under concurrency; suitable for monitoring only.
func (v *view) IsEmpty() bool {
	ctrl := v.ctrl()
	head := ctrl.head.LoadAcquire()
	tail := ctrl.tail.LoadAcquire()
	return head == tail
}

// SizeApprox returns tail − head at one observation point. The value is
// a non-linearizable hint: it may be momentarily stale or exceed the
// capacity while operations are in flight.
func (v *view) SizeApprox() uint64 {
	ctrl := v.ctrl()
	head := ctrl.head.LoadAcquire()
	tail := ctrl.tail.LoadAcquire()
	return tail - head
}

// Cap returns the queue capacity.
func (v *view) Cap() int {
	return int(v.capacity)
}
