// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmq provides bounded MPMC ring queues that live entirely in
// a caller-supplied memory region, for shared-memory IPC as well as
// in-process use.
//
// The caller maps one byte region into every participating process; the
// queue lays its control block and slot array out in-place, coordinates
// one-shot initialization among concurrent first attachers, and then
// serves lock-free enqueue/dequeue. Entries carry an importance flag:
// with overwrite enabled, an enqueue on a full ring may discard the
// oldest non-important entry, but an important entry is never silently
// dropped (except by the SPSC variant's best-effort scan, see Variants).
//
// # Region Contract
//
// The core takes only a byte slice. Creating the underlying object
// (shm file, anonymous mapping, section object) is the caller's job;
// package [code.hybscloud.com/shmq/shmem] covers the common unix cases.
// The contract:
//
//   - A fresh region is zero-filled.
//   - The base address is 64-byte aligned (any page-aligned mapping).
//   - All participants map the region so relative offsets are identical.
//   - All participants are built from the same source for the same
//     platform: the layout is taken from the Go compiler, and atomics
//     in the region must have identical representation everywhere.
//   - All attachers of one region agree on the variant, the element
//     type and the overwrite setting.
//   - The region outlives every handle; the handle owns and frees
//     nothing.
//
// Element types must be trivially copyable and pointer-free: the region
// crosses address spaces and the garbage collector never scans it.
//
// # Quick Start
//
//	region, err := shmem.Create("/dev/shm/events", shmq.RequiredSize[Event](1024))
//	if err != nil { ... }
//
//	q, err := shmq.AttachMPMC[Event](region.Bytes())
//	if err != nil { ... }
//
//	ev := Event{ID: 7}
//	if err := q.Enqueue(&ev, false); err != nil {
//	    // full - handle backpressure
//	}
//
//	ev, important, err := q.Dequeue()
//	if shmq.IsWouldBlock(err) {
//	    // empty - try again later
//	}
//
// Another process opens the same file and attaches the same way; the
// first attacher to touch a fresh region initializes it, everyone else
// binds to the initialized state.
//
// # Importance and Overwrite
//
// Overwrite is off by default: a full ring fails the enqueue with
// [ErrWouldBlock]. Enabled via the builder, a full-ring enqueue evicts
// the oldest entry instead:
//
//	q, err := shmq.Attach[Event](region.Bytes(), shmq.New().Overwrite())
//
//	q.Enqueue(&routine, false) // may be evicted under pressure
//	q.Enqueue(&alarm, true)    // survives until dequeued
//
// The MPMC variant is strict: if the oldest entry is important the
// enqueue fails and the caller decides (dequeue, drop the new item,
// back off). FIFO order is not guaranteed once eviction occurs.
//
// # Variants
//
//	MPMC[T]      - sequence-tag ring; safe under any discipline (default)
//	SPSC[T]      - head/tail-only Lamport ring with cached indices;
//	               single producer, single consumer; best-effort
//	               scanning eviction
//	MPMCIndirect - 63-bit uintptr payloads packed with the sequence tag
//	               into one 128-bit entry; one atomic per operation
//
// The builder selects between MPMC and SPSC from declared constraints:
//
//	q, err := shmq.Attach[Event](region.Bytes(),
//	    shmq.New().SingleProducer().SingleConsumer().Overwrite())
//
// # Error Handling
//
// Operations return [ErrWouldBlock] when they cannot proceed; it is a
// control flow signal sourced from [code.hybscloud.com/iox] for
// ecosystem consistency. Attachment reports [ErrInsufficientRegion],
// [ErrMisalignedRegion] and [ErrCapacityMismatch]. Nothing is retried
// inside the core and nothing is fatal.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item, false)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !shmq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// # Observation
//
// IsEmpty and SizeApprox read head and tail without linearizing against
// concurrent operations. They are monitoring hints, not synchronization
// primitives.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but
// cannot observe happens-before relationships established through
// atomic memory orderings on separate variables. The ring protects slot
// payloads through its sequence tags, so correct concurrent runs report
// false positives. Tests incompatible with race detection are excluded
// via the RaceEnabled constant.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU
// pause instructions in retry loops, and [code.hybscloud.com/iox] for
// semantic errors and backoff.
package shmq
