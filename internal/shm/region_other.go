// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package shm

import "errors"

// Region is a single-process stand-in used on platforms without
// memfd_create/mmap support. Reopen returns a slice aliasing the same
// backing array, which is sufficient to exercise the algorithm but
// does not demonstrate genuine cross-address-space sharing the way
// the linux implementation does.
type Region struct {
	mem []byte
}

// New allocates a plain Go byte slice of size bytes.
func New(size int) (*Region, error) {
	return &Region{mem: make([]byte, size)}, nil
}

// Reopen returns a Region aliasing the same backing array.
func (r *Region) Reopen() (*Region, error) {
	if r.mem == nil {
		return nil, errors.New("shm: region closed")
	}
	return &Region{mem: r.mem}, nil
}

// Bytes returns the mapped memory.
func (r *Region) Bytes() []byte { return r.mem }

// Close is a no-op on this platform.
func (r *Region) Close() error { return nil }
