// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/shmq"
	"github.com/valyala/fastrand"
)

// =============================================================================
// MPMC Stress Tests
//
// The ring protects payloads through per-slot sequence tags with
// acquire-release ordering, a happens-before edge the race detector
// cannot observe; concurrent scenarios are skipped under -race.
// =============================================================================

// TestMPMCFIFOSingleProducerConsumer drives 1000 items through a
// 4-slot ring with one producer and one concurrent consumer and checks
// the exact dequeue sequence.
func TestMPMCFIFOSingleProducerConsumer(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: sequence-tag ordering is invisible to the race detector")
	}

	const items = 1000

	region := newRegion(t, shmq.RequiredSize[int](4))
	q, err := shmq.AttachMPMC[int](region)
	if err != nil {
		t.Fatalf("AttachMPMC: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range items {
			v := i
			for q.Enqueue(&v, false) != nil {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	got := make([]int, 0, items)
	backoff := iox.Backoff{}
	for len(got) < items {
		v, _, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		got = append(got, v)
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("dequeue sequence broken at %d: got %d", i, v)
		}
	}
}

// TestMPMCStressConcurrent tests the ring under high concurrent load:
// every produced value is consumed exactly once, none invented.
func TestMPMCStressConcurrent(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: sequence-tag ordering is invisible to the race detector")
	}

	const (
		numProducers = 8
		numConsumers = 8
		itemsPerProd = 10000
		timeout      = 10 * time.Second
	)

	region := newRegion(t, shmq.RequiredSize[int](64))
	q, err := shmq.AttachMPMC[int](region)
	if err != nil {
		t.Fatalf("AttachMPMC: %v", err)
	}

	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var produced, consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v := id*itemsPerProd + i
				for q.Enqueue(&v, false) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				produced.Add(1)
				backoff.Reset()
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, _, err := q.Dequeue()
				if err == nil {
					if v >= 0 && v < expectedTotal {
						seen[v].Add(1)
					}
					consumed.Add(1)
					backoff.Reset()
				} else {
					if produced.Load() == int64(expectedTotal) && consumed.Load() == int64(expectedTotal) {
						return
					}
					backoff.Wait()
				}
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: produced=%d, consumed=%d/%d",
			produced.Load(), consumed.Load(), expectedTotal)
	}
	for v := range expectedTotal {
		if n := seen[v].Load(); n != 1 {
			t.Fatalf("value %d consumed %d times, want exactly once", v, n)
		}
	}
}

// TestMPMCPerProducerOrder verifies that, without overwrite, each
// producer's values are consumed in that producer's enqueue order.
func TestMPMCPerProducerOrder(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: sequence-tag ordering is invisible to the race detector")
	}

	const (
		numProducers = 2
		numConsumers = 2
		itemsPerProd = 500
	)

	region := newRegion(t, shmq.RequiredSize[int](8))
	q, err := shmq.AttachMPMC[int](region)
	if err != nil {
		t.Fatalf("AttachMPMC: %v", err)
	}

	var wg sync.WaitGroup
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Enqueue(&v, false) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	var mu sync.Mutex
	var total int
	lastSeen := make([]int, numProducers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	var cwg sync.WaitGroup
	var consumed atomix.Int64
	deadline := time.Now().Add(10 * time.Second)
	for range numConsumers {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < numProducers*itemsPerProd {
				if time.Now().After(deadline) {
					return
				}
				v, _, err := q.Dequeue()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				consumed.Add(1)

				id, seq := v/itemsPerProd, v%itemsPerProd
				mu.Lock()
				if seq <= lastSeen[id] {
					mu.Unlock()
					t.Errorf("producer %d order broken: %d after %d", id, seq, lastSeen[id])
					return
				}
				lastSeen[id] = seq
				total++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	if total != numProducers*itemsPerProd {
		t.Fatalf("consumed %d values, want %d", total, numProducers*itemsPerProd)
	}
}

// TestMPMCWraparound drives the positions far past several multiples of
// a tiny capacity.
func TestMPMCWraparound(t *testing.T) {
	region := newRegion(t, shmq.RequiredSize[uint64](3))
	q, err := shmq.AttachMPMC[uint64](region)
	if err != nil {
		t.Fatalf("AttachMPMC: %v", err)
	}

	for i := range uint64(3 << 12) {
		if err := q.Enqueue(&i, i%5 == 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
		v, important, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i || important != (i%5 == 0) {
			t.Fatalf("round %d: got (%d, %v)", i, v, important)
		}
		if got := q.SizeApprox(); got != 0 {
			t.Fatalf("round %d: SizeApprox got %d, want 0", i, got)
		}
	}
}

// TestOverwriteStressImportantPreserved hammers an overwriting ring
// with a random mix of important and routine entries. Every important
// entry that was accepted must come back out exactly once.
func TestOverwriteStressImportantPreserved(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: sequence-tag ordering is invisible to the race detector")
	}

	const (
		numProducers = 4
		itemsPerProd = 5000
		capacity     = 16
	)

	region := newRegion(t, shmq.RequiredSize[int](capacity))
	q, err := shmq.Attach[int](region, shmq.New().Overwrite())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	expectedTotal := numProducers * itemsPerProd
	importantSent := make([]atomix.Int32, expectedTotal)
	importantSeen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var producersDone atomix.Int32
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				if fastrand.Uint32n(4) == 0 {
					// Important entries retry until accepted; once in,
					// only a dequeue can take them out.
					for q.Enqueue(&v, true) != nil {
						backoff.Wait()
					}
					importantSent[v].Store(1)
					backoff.Reset()
				} else {
					// Routine entries may be evicted or rejected.
					q.Enqueue(&v, false)
				}
			}
			producersDone.Add(1)
		}(p)
	}

	var cwg sync.WaitGroup
	for range 2 {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			backoff := iox.Backoff{}
			for {
				v, important, err := q.Dequeue()
				if err != nil {
					if producersDone.Load() == numProducers && q.IsEmpty() {
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if important {
					importantSeen[v].Add(1)
				}
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	for v := range expectedTotal {
		sent := importantSent[v].Load()
		got := importantSeen[v].Load()
		if sent == 1 && got != 1 {
			t.Fatalf("important value %d consumed %d times, want exactly once", v, got)
		}
		if sent == 0 && got != 0 {
			t.Fatalf("value %d consumed as important but never sent important", v)
		}
	}
}
