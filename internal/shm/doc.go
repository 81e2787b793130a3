// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shm allocates anonymous shared memory regions for exercising
// [code.hybscloud.com/shmq.RawQueue] the way it is meant to be used:
// with its Header and buffer mapped independently, potentially by two
// unrelated processes. It is not part of the queue's public API —
// mapping and allocation are the wrapped queue's job, one layer up,
// and this package exists only to give the raw algorithm's tests and
// examples a way to exercise that arrangement without a second binary.
package shm
