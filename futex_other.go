// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(linux && (amd64 || arm64))

package shmq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// FutexWait is a [WaitFunc] fallback for platforms without the Linux
// futex syscall (or without a little-endian 32/64 aliasing we trust).
// It cannot park the OS thread the way a real futex does, so it spins
// with a pause hint until *word changes. This is only ever reached
// after Submit/Receive's own 1000-iteration spin budget has already
// been exhausted, so it is a deliberate trade of CPU for portability,
// not a hot path.
func FutexWait(word *atomix.Uint64, expected uint64) {
	sw := spin.Wait{}
	for word.LoadAcquire() == expected {
		sw.Once()
	}
}

// FutexWake is a [RingFunc] fallback pairing with [FutexWait]. Waking
// is implicit in the spin loop above, so FutexWake is a no-op.
func FutexWake(*atomix.Uint64) {}
