// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"fmt"
	"unsafe"
)

// RequiredBytes reports how large a shared memory region must be to
// hold a Header followed immediately by 1<<l2len Entry[T] values, the
// layout [InitShared] and [OpenShared] use. Transports that map the
// header and buffer separately don't need this; it exists for the
// common case of one contiguous mapping carved in two.
func RequiredBytes[T any](l2len uint) int {
	var hdr Header
	var ent Entry[T]
	return int(unsafe.Sizeof(hdr)) + (1<<l2len)*int(unsafe.Sizeof(ent))
}

// InitShared carves a fresh Header and an all-zero buffer of 1<<l2len
// entries out of mem and returns a bound RawQueue. Call this from
// whichever side creates the region; every other side attaches with
// [OpenShared] instead, or data stamped before the zeroing races will
// be lost.
func InitShared[T any](mem []byte, l2len uint) (*RawQueue[T], error) {
	var ent Entry[T]
	need := RequiredBytes[T](l2len)
	if len(mem) < need {
		return nil, fmt.Errorf("shmq: region too small: have %d bytes, need %d", len(mem), need)
	}

	hdrSize := int(unsafe.Sizeof(Header{}))
	for i := range mem[:need] {
		mem[i] = 0
	}

	hdr := (*Header)(unsafe.Pointer(unsafe.SliceData(mem)))
	hdr.L2len = l2len
	hdr.Stride = uint(unsafe.Sizeof(ent))

	buf := bufferView[T](mem, hdrSize, l2len)
	return NewRawQueue(hdr, buf), nil
}

// OpenShared binds a RawQueue to a region previously initialized by
// [InitShared] elsewhere (another goroutine, process, or privilege
// level mapping the same bytes). It trusts mem's existing Header —
// L2len in particular — rather than re-deriving it from a parameter,
// since the whole point is that this side didn't create the layout.
func OpenShared[T any](mem []byte) (*RawQueue[T], error) {
	hdrSize := int(unsafe.Sizeof(Header{}))
	if len(mem) < hdrSize {
		return nil, fmt.Errorf("shmq: region too small for a header: have %d bytes, need %d", len(mem), hdrSize)
	}

	hdr := (*Header)(unsafe.Pointer(unsafe.SliceData(mem)))
	need := RequiredBytes[T](hdr.L2len)
	if len(mem) < need {
		return nil, fmt.Errorf("shmq: region too small for l2len=%d: have %d bytes, need %d", hdr.L2len, len(mem), need)
	}

	buf := bufferView[T](mem, hdrSize, hdr.L2len)
	return NewRawQueue(hdr, buf), nil
}

func bufferView[T any](mem []byte, hdrSize int, l2len uint) []Entry[T] {
	base := unsafe.Pointer(&mem[hdrSize])
	return unsafe.Slice((*Entry[T])(base), 1<<l2len)
}
