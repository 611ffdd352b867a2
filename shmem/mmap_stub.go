// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package shmem

// Create is not implemented on this platform.
func Create(path string, size int) (*Region, error) {
	return nil, ErrUnsupported
}

// Open is not implemented on this platform.
func Open(path string) (*Region, error) {
	return nil, ErrUnsupported
}

// MapAnon is not implemented on this platform.
func MapAnon(size int) (*Region, error) {
	return nil, ErrUnsupported
}

// Close is a no-op on this platform.
func (r *Region) Close() error {
	return nil
}
