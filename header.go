// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "code.hybscloud.com/atomix"

// waitingBit is bit 31 of tail: set while the consumer is parked so
// producers know whether a publish needs to ring the bell.
const waitingBit = uint64(1) << 31

// tailMask masks tail down to the 31-bit consumer counter.
const tailMask = uint64(0x7fffffff)

// Header is the fixed-layout coordination record for a RawQueue. It
// carries no payload itself: Head, Tail, Bell and Waiters are the only
// state the algorithm needs, and every field is sized and ordered to
// match across independently mapped copies of this struct (kernel and
// userspace, or two processes sharing one memory object).
//
// L2len sets the capacity (1<<L2len) that every operation derives its
// slot indices and turns from. Stride is advisory — the algorithm never
// reads it — but external mappers need both to recompute the buffer's
// address and bounds without a side channel.
type Header struct {
	L2len  uint
	Stride uint

	head    atomix.Uint32 // producer reservation counter (CAS)
	waiters atomix.Uint32 // producers currently parked on tail

	bell atomix.Uint64 // doorbell, incremented after each publish
	tail atomix.Uint64 // consumer counter; bit 31 = waiting flag
}

// NewHeader zero-initializes a Header for a buffer of 1<<l2len entries
// whose stride (element size in bytes) is stride. l2len and stride are
// advisory metadata for external mappers; the algorithm itself only
// ever derives capacity from l2len.
func NewHeader(l2len, stride uint) *Header {
	if l2len == 0 {
		panic("shmq: l2len must be >= 1")
	}
	return &Header{L2len: l2len, Stride: stride}
}

// capacity returns 1<<l2len, the number of entries in the buffer.
func (h *Header) capacity() uint32 {
	return uint32(1) << h.L2len
}

// Cap returns the queue's entry capacity.
func (h *Header) Cap() int {
	return int(h.capacity())
}

// full reports whether a reservation at head has run ahead of tail by
// a full revolution. head and tail are masked to their low 31 bits
// and their difference is taken modulo 2^31, so it stays correct when
// either counter wraps; invariant 2 guarantees head never actually laps
// tail by more than capacity when callers respect backpressure.
func (h *Header) full(head uint32, tail uint64) bool {
	n := uint64(h.capacity())
	return (uint64(head&slotMask)-tail&tailMask)&tailMask >= n
}

// isEmpty reports whether the consumer has caught up to the doorbell.
func (h *Header) isEmpty(bell, tail uint64) bool {
	return bell&tailMask == tail&tailMask
}

// oddTurn reports whether the revolution containing absolute position
// t is odd, i.e. the consumer should expect a stamped-zero high bit.
func (h *Header) oddTurn(t uint64) bool {
	return (t/uint64(h.capacity()))%2 == 1
}

// publishTurn reports the turn a producer reserving absolute position
// pos must stamp: true (high bit 1) on even revolutions, false on odd.
func (h *Header) publishTurn(pos uint32) bool {
	return (uint64(pos)/uint64(h.capacity()))%2 == 0
}

// consumerWaiting reports whether the consumer has parked on bell.
func (h *Header) consumerWaiting() bool {
	return h.tail.LoadAcquire()&waitingBit != 0
}

// setConsumerWaiting sets or clears the waiting bit in tail without
// disturbing the counter, via a CAS loop since atomix has no
// fetch-or/fetch-and primitive.
func (h *Header) setConsumerWaiting(waiting bool) {
	for {
		old := h.tail.LoadAcquire()
		var next uint64
		if waiting {
			next = old | waitingBit
		} else {
			next = old &^ waitingBit
		}
		if old == next || h.tail.CompareAndSwapAcqRel(old, next) {
			return
		}
	}
}

// submitterWaiting reports whether any producer is parked on tail.
func (h *Header) submitterWaiting() bool {
	return h.waiters.LoadAcquire() > 0
}

func (h *Header) incWaiters() {
	h.waiters.AddAcqRel(1)
}

func (h *Header) decWaiters() {
	h.waiters.AddAcqRel(^uint32(0)) // -1, two's complement wraparound
}
