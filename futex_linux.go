// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package shmq

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/atomix"
)

// FutexWait and FutexWake below are not timesharing Go channels or a
// sync.Cond: they address a raw memory word by pointer, which is the
// only handoff mechanism that works when the two sides of a RawQueue
// are different processes mapping the same shared memory object and
// so cannot share a Go runtime value. FUTEX_WAIT/FUTEX_WAKE address
// the word itself rather than anything the Go runtime tracks, so this
// works equally well for an in-process queue.

// FutexWait is a [WaitFunc] backed by the Linux futex syscall. It
// blocks until *word no longer equals expected, or returns immediately
// if it already doesn't. A spurious wake (EINTR, or another waiter's
// wake racing this one) is handled by the caller's retry loop, per the
// wait contract — FutexWait does not loop internally.
//
// Linux futex words are 32 bits; bell and tail are 64. FutexWait and
// FutexWake only ever address the low 32 bits of the word, which is
// sufficient here because both counters only need to change, not be
// compared exactly, to unpark a waiter, and because amd64/arm64 are
// little-endian so the low 32 bits sit at the word's base address.
func FutexWait(word *atomix.Uint64, expected uint64) {
	addr := (*uint32)(unsafe.Pointer(word))
	lo := uint32(expected)
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT),
		uintptr(lo),
		0, 0, 0,
	)
	_ = errno // EAGAIN (word already changed) and EINTR are both fine to ignore
}

// FutexWake is a [RingFunc] backed by the Linux futex syscall. It
// wakes every waiter parked on word via [FutexWait]; the queue
// algorithm relies on a broadcast wake rather than waking one waiter
// at a time, since producers may be numerous.
func FutexWake(word *atomix.Uint64) {
	addr := (*uint32)(unsafe.Pointer(word))
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE),
		uintptr(0x7fffffff), // INT_MAX: the kernel reads this count as a signed int
		0, 0, 0,
	)
}
