// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "code.hybscloud.com/atomix"

// turnBit is the high bit of cmd_slot, toggled by producers every
// revolution of the buffer so the consumer can tell fresh data from a
// stale payload left over at the same slot index.
const turnBit = uint32(1) << 31

// slotMask masks cmd_slot down to the reserved position, low 31 bits.
const slotMask = uint32(0x7fffffff)

// Entry is the fixed-layout record stored in the circular buffer. Both
// the producer side and the consumer side must agree on this layout
// byte-for-byte: it is the only part of the protocol that crosses into
// shared memory alongside the header.
//
// cmdSlot is the per-slot synchronization token: its low 31 bits hold
// the reserved position modulo 2^31 and its high bit holds the turn a
// producer stamped when it published. Info is an opaque caller tag,
// copied verbatim, typically used by a higher layer to correlate a
// reply with its request. Data is the payload and must be trivially
// copyable: Entry is copied by value, never by reference, and nothing
// runs a destructor on the slot it vacates.
type Entry[T any] struct {
	cmdSlot atomix.Uint32
	Info    uint32
	Data    T
}

// NewEntry builds an Entry ready for Submit. cmdSlot is stamped by the
// queue itself during submission; callers never set it directly.
func NewEntry[T any](info uint32, data T) Entry[T] {
	return Entry[T]{Info: info, Data: data}
}

// loadCmdSlot reads the control word with the same ordering the
// consumer uses to decide readiness.
func (e *Entry[T]) loadCmdSlot() uint32 {
	return e.cmdSlot.LoadAcquire()
}

// stampCmdSlot publishes the reserved position and turn. Callers must
// have finished writing Data and Info before calling this: the store
// is the release that makes the payload visible to the consumer.
func (e *Entry[T]) stampCmdSlot(pos uint32, turn bool) {
	v := pos & slotMask
	if turn {
		v |= turnBit
	}
	e.cmdSlot.StoreRelease(v)
}

// readyForTurn reports whether this slot's stamp matches the
// consumer's expected turn, where expectOddTurn says whether the
// consumer's position lies on an odd revolution. On even revolutions
// the producer stamps the high bit 1, on odd revolutions it stamps 0.
func (e *Entry[T]) readyForTurn(expectOddTurn bool) bool {
	stampedZero := e.loadCmdSlot()&turnBit == 0
	return stampedZero == expectOddTurn
}
