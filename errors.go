// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the queue is full (or, with overwrite enabled, full with
// no entry the eviction policy may discard: for the MPMC variants the
// oldest entry is important, for SPSC every entry is).
// For Dequeue: the queue is empty.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller
// should retry the operation later (with backoff or yield) rather than
// propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrInsufficientRegion indicates the supplied region cannot hold the
// control block plus at least one slot, or cannot hold the explicitly
// requested capacity.
var ErrInsufficientRegion = errors.New("shmq: region too small")

// ErrCapacityMismatch indicates an explicit capacity was requested for
// a region that is already initialized with a different capacity.
var ErrCapacityMismatch = errors.New("shmq: capacity differs from initialized region")

// ErrMisalignedRegion indicates the region base address is not 64-byte
// aligned. Page-aligned mappings (mmap, shm files) always satisfy this.
var ErrMisalignedRegion = errors.New("shmq: region base not 64-byte aligned")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
