// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package shmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create creates a new file-backed region of the given size and maps
// it. The file is created exclusively and zero-filled by truncation.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmem: invalid region size %d", size)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shmem: create %s: %w", path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shmem: resize %s: %w", path, err)
	}

	mem, err := mapFile(file, size)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return &Region{path: path, file: file, mem: mem}, nil
}

// Open maps an existing file-backed region in full.
func Open(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmem: open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmem: stat %s: %w", path, err)
	}

	mem, err := mapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, err
	}
	return &Region{path: path, file: file, mem: mem}, nil
}

// MapAnon maps an anonymous zero-filled region. Anonymous regions are
// shared only with children of the mapping process; they suit
// in-process queues and tests.
func MapAnon(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmem: invalid region size %d", size)
	}
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("shmem: mmap anonymous: %w", err)
	}
	return &Region{mem: mem}, nil
}

func mapFile(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmem: mmap %s: %w", file.Name(), err)
	}
	return mem, nil
}

// Close unmaps the region and closes the backing file, if any. The
// region's bytes must not be used afterwards.
func (r *Region) Close() error {
	var err error
	if r.mem != nil {
		err = unix.Munmap(r.mem)
		r.mem = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}
