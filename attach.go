// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/iox"
)

// attachRegion binds a view to a caller-supplied region, running the
// one-shot bootstrap when the region is fresh.
//
// The bootstrap is coordinated by the tri-state init flag: exactly one
// attacher wins the CAS from stateRaw to stateInitializing, constructs
// the control block and the slot array, and releases stateReady. Every
// other attacher waits for stateReady before touching capacity or any
// slot — observing stateInitializing means those fields are not yet
// published.
//
// requested == 0 derives the capacity from the region size. initSlot
// writes one slot's initial state for the winning attacher.
func attachRegion(mem []byte, stride uintptr, requested int, initSlot func(unsafe.Pointer, uint64)) (view, error) {
	if uintptr(len(mem)) < controlSize+stride {
		return view{}, ErrInsufficientRegion
	}
	if uintptr(unsafe.Pointer(&mem[0]))&(regionAlign-1) != 0 {
		return view{}, ErrMisalignedRegion
	}

	derived := uint64((uintptr(len(mem)) - controlSize) / stride)
	capacity := derived
	if requested > 0 {
		if uint64(requested) > derived {
			return view{}, ErrInsufficientRegion
		}
		capacity = uint64(requested)
	}

	v := view{mem: mem, stride: stride, capacity: capacity}
	ctrl := v.ctrl()

	if ctrl.initState.CompareAndSwapAcqRel(stateRaw, stateInitializing) {
		ctrl.capacity = capacity
		ctrl.head.StoreRelaxed(0)
		ctrl.tail.StoreRelaxed(0)
		for i := uint64(0); i < capacity; i++ {
			initSlot(v.slotPtr(i), i)
		}
		ctrl.initState.StoreRelease(stateReady)
		return v, nil
	}

	// Lost the claim: either initialization is in flight or the region
	// was initialized earlier. Wait for the winner's release.
	backoff := iox.Backoff{}
	for ctrl.initState.LoadAcquire() != stateReady {
		backoff.Wait()
	}

	v.capacity = ctrl.capacity
	if requested > 0 && uint64(requested) != v.capacity {
		return view{}, ErrCapacityMismatch
	}
	if uintptr(len(mem)) < controlSize+uintptr(v.capacity)*stride {
		// This mapping is shorter than the slot array the region was
		// initialized with.
		return view{}, ErrInsufficientRegion
	}
	return v, nil
}
