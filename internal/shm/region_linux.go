// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Region is one mmap view of an anonymous, fd-backed shared memory
// object. Two Regions opened from the same fd (see [Region.Reopen])
// behave like the same object mapped into two processes: writes
// through one become visible through the other without any copy, the
// same way a RawQueue's Header and buffer would be shared in
// production.
type Region struct {
	fd   int
	size int
	mem  []byte
}

// New creates a fresh memfd of size bytes and maps it once.
func New(size int) (*Region, error) {
	fd, err := unix.MemfdCreate("shmq-region", 0)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{fd: fd, size: size, mem: mem}, nil
}

// Reopen maps the same backing fd into a second, independent []byte
// view — the in-process stand-in for a second process attaching to
// the same shared memory object. The two Regions' Bytes slices alias
// the same physical pages.
func (r *Region) Reopen() (*Region, error) {
	mem, err := unix.Mmap(r.fd, 0, r.size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap (reopen): %w", err)
	}
	return &Region{fd: r.fd, size: r.size, mem: mem}, nil
}

// Bytes returns this view's mapped memory.
func (r *Region) Bytes() []byte { return r.mem }

// Close unmaps this view. The backing fd (and the other view, if any)
// is unaffected.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}
