// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmem creates and maps the shared-memory regions the queue
// core operates on.
//
// The core in package shmq takes only a byte slice; this package covers
// the unix lifecycle around it: file-backed regions visible to multiple
// processes (put them on a tmpfs such as /dev/shm), and anonymous
// mappings for in-process use and tests. Mappings are page-aligned,
// which satisfies the core's 64-byte base alignment contract, and
// file-backed regions are created zero-filled, which satisfies its
// fresh-region contract.
//
// Naming, discovery and destruction policy stay with the caller: Close
// unmaps a region without touching the backing file, Unlink removes the
// file when the caller decides its lifetime is over.
package shmem

import (
	"errors"
	"os"
)

// ErrUnsupported indicates shared-memory mapping is not implemented on
// this platform.
var ErrUnsupported = errors.New("shmem: unsupported platform")

// Region is a mapped shared-memory region.
type Region struct {
	path string
	file *os.File
	mem  []byte
}

// Bytes returns the mapped region. The slice stays valid until Close.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Path returns the backing file path, empty for anonymous regions.
func (r *Region) Path() string {
	return r.path
}

// Size returns the region size in bytes.
func (r *Region) Size() int {
	return len(r.mem)
}

// Unlink removes the backing file. The mapping itself stays valid until
// Close; other processes that already mapped the region keep it.
func (r *Region) Unlink() error {
	if r.path == "" {
		return nil
	}
	return os.Remove(r.path)
}
