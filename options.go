// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

// Options configures region attachment and variant selection.
type Options struct {
	// Producer/Consumer constraints (determines queue variant)
	singleProducer bool
	singleConsumer bool

	// Enqueue-on-full eviction
	overwrite bool

	// Explicit capacity; 0 derives it from the region size
	capacity int
}

// Builder configures Attach with fluent chaining.
//
// The builder selects the queue variant from the declared
// producer/consumer constraints:
//
//	// MPMC (default, safe under any discipline)
//	q, err := shmq.Attach[Event](region, shmq.New())
//
//	// MPMC with strict-importance eviction on full
//	q, err := shmq.Attach[Event](region, shmq.New().Overwrite())
//
//	// SPSC with best-effort scanning eviction
//	q, err := shmq.Attach[Event](region, shmq.New().SingleProducer().SingleConsumer().Overwrite())
//
//	// Explicit capacity (verified against an already-initialized region)
//	q, err := shmq.Attach[Event](region, shmq.New().Capacity(256))
type Builder struct {
	opts Options
}

// New creates an attachment builder with derived capacity, no
// constraints and overwrite disabled.
func New() *Builder {
	return &Builder{}
}

// Capacity requests an explicit capacity instead of deriving it from
// the region size. Attaching to an already-initialized region whose
// capacity differs fails with ErrCapacityMismatch.
//
// Panics if capacity < 1.
func (b *Builder) Capacity(capacity int) *Builder {
	if capacity < 1 {
		panic("shmq: capacity must be >= 1")
	}
	b.opts.capacity = capacity
	return b
}

// Overwrite enables enqueue-on-full eviction. The MPMC variant evicts
// strictly (the oldest entry is discarded only when non-important); the
// SPSC variant scans best-effort.
func (b *Builder) Overwrite() *Builder {
	b.opts.overwrite = true
	return b
}

// SingleProducer declares that only one attacher will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one attacher will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Attach binds a queue to region with automatic variant selection,
// initializing the region on first attach.
//
// Variant selection:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring, scan eviction)
//	anything else                   → MPMC (sequence-tag ring)
//
// A one-sided constraint selects MPMC: the sequence-tag ring is already
// safe under single-role discipline, and the region cannot prove the
// discipline to its other attachers anyway.
//
// The variant, the element type and the overwrite setting are part of
// the region's contract: every attacher of one region must agree on all
// three.
func Attach[T any](region []byte, b *Builder) (Queue[T], error) {
	if b == nil {
		b = New()
	}
	if b.opts.singleProducer && b.opts.singleConsumer {
		return attachSPSC[T](region, b.opts)
	}
	return attachMPMC[T](region, b.opts)
}

// AttachIndirect binds an MPMCIndirect queue (63-bit uintptr payloads,
// one atomic per operation) to region, initializing it on first attach.
func (b *Builder) AttachIndirect(region []byte) (*MPMCIndirect, error) {
	return attachIndirect(region, b.opts)
}
