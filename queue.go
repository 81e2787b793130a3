// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// spinAttempts is how many paused spin iterations Submit and Receive
// try before parking via WaitFunc. It mirrors the budget used by the
// FAA-based queues elsewhere in this family: enough to ride out a
// laggard producer without syscalling, short enough not to burn a core
// when the peer genuinely needs to be woken.
const spinAttempts = 1000

// WaitFunc blocks the calling goroutine until *word no longer equals
// expected, or returns immediately if it already doesn't. Spurious
// returns are allowed: Submit and Receive re-check their predicate in
// a loop regardless. A futex-backed WaitFunc (see [FutexWait]) is the
// intended real-world implementation for cross-process queues; tests
// may supply a trivial spin-and-check or channel-backed stand-in.
type WaitFunc func(word *atomix.Uint64, expected uint64)

// RingFunc wakes every goroutine (or process, or CPU) parked in a
// WaitFunc call on word. It must not be selective: both submit-side
// waiters (plural) and the single receive-side waiter rely on a
// broadcast wake, not a single-waiter handoff.
type RingFunc func(word *atomix.Uint64)

// RawQueue is a lock-free MPSC bounded queue whose coordination state
// (Header) and backing buffer may live in entirely separate memory
// mappings. Nothing about the algorithm assumes they share an
// allocator, a process, or even a privilege level: the only contract
// is that every party maps the same Header layout and the same buffer
// stride, and that exactly one goroutine ever calls Receive at a time.
//
// Producers may be arbitrary in number and call Submit concurrently
// with each other and with the single Receive caller.
type RawQueue[T any] struct {
	hdr *Header
	buf []Entry[T]
}

// NewRawQueue binds a Header to a buffer of 1<<hdr.L2len entries. The
// buffer is not allocated here: callers that need a process-local
// queue can use [NewQueue], and callers bridging two memory mappings
// construct the buffer however their transport maps it (see the
// shm subpackage for an mmap-backed example) and pass it in directly.
func NewRawQueue[T any](hdr *Header, buf []Entry[T]) *RawQueue[T] {
	if len(buf) != int(hdr.capacity()) {
		panic("shmq: buffer length must equal header capacity")
	}
	return &RawQueue[T]{hdr: hdr, buf: buf}
}

// NewQueue allocates a process-local header and buffer together and
// returns a ready-to-use queue. capacity rounds up to the next power
// of two; this is a convenience for the common case where both
// regions are plain Go memory.
func NewQueue[T any](capacity int) *RawQueue[T] {
	if capacity < 2 {
		panic("shmq: capacity must be >= 2")
	}
	l2len := uint(0)
	for (1 << l2len) < capacity {
		l2len++
	}
	hdr := NewHeader(l2len, uint(entryStride[T]()))
	return NewRawQueue(hdr, make([]Entry[T], 1<<l2len))
}

// entryStride reports sizeof(Entry[T]). Header.Stride is advisory
// metadata for external mappers and is never consulted by the
// algorithm itself.
func entryStride[T any]() uintptr {
	var e Entry[T]
	return unsafe.Sizeof(e)
}

// Header returns the queue's coordination header, e.g. to hand to a
// mapper that needs to recompute an address in a second process.
func (q *RawQueue[T]) Header() *Header {
	return q.hdr
}

// Cap returns the queue's entry capacity.
func (q *RawQueue[T]) Cap() int {
	return q.hdr.Cap()
}

func (q *RawQueue[T]) slot(pos uint32) *Entry[T] {
	return &q.buf[pos&(q.hdr.capacity()-1)]
}

// Submit reserves a slot, writes entry into it, and rings the
// doorbell. Multiple producers may call Submit concurrently.
//
// If the queue is full, Submit either parks (via wait) until a
// Receive frees space, or, if flags includes NonBlock, returns
// ErrWouldBlock immediately.
//
// Reservation only ever advances head once space has been confirmed
// available, via a compare-and-swap rather than an unconditional
// fetch-add: a producer that observes the queue full never touches
// head at all, so there is no path that leaves a slot reserved and
// then abandoned. (An unconditional fetch-add, as a naive reading of
// the reservation step might suggest, would let a WouldBlock return
// leave behind a reserved-but-never-filled slot that stalls the
// consumer once tail reaches it — this implementation reserves only
// after confirming room instead.)
func (q *RawQueue[T]) Submit(entry Entry[T], wait WaitFunc, ring RingFunc, flags SubmitFlags) error {
	pos, err := q.reserveSlot(flags, wait)
	if err != nil {
		return err
	}

	slot := q.slot(pos)
	slot.Data = entry.Data
	slot.Info = entry.Info
	slot.stampCmdSlot(pos, q.hdr.publishTurn(pos))

	q.ringBell(ring)
	return nil
}

// reserveSlot implements §4.3 steps 1-2. Unlike an SCQ-style queue
// that blindly fetch-adds head and checks afterward, this loop
// confirms space is available before it ever advances head, via CAS —
// a producer that finds the queue full backs off without having
// claimed anything.
func (q *RawQueue[T]) reserveSlot(flags SubmitFlags, wait WaitFunc) (uint32, error) {
	sw := spin.Wait{}
	attempts := spinAttempts
	waiter := false
	for {
		head := q.hdr.head.LoadAcquire()
		tail := q.hdr.tail.LoadAcquire()

		if !q.hdr.full(head, tail) {
			if q.hdr.head.CompareAndSwapAcqRel(head, head+1) {
				if waiter {
					q.hdr.decWaiters()
				}
				return head & slotMask, nil
			}
			continue // lost the race to another producer; re-read and retry
		}

		if flags.has(NonBlock) {
			if waiter {
				q.hdr.decWaiters()
			}
			return 0, ErrWouldBlock
		}

		if attempts > 0 {
			attempts--
			sw.Once()
			continue
		}

		if !waiter {
			waiter = true
			q.hdr.incWaiters()
		}

		tail = q.hdr.tail.LoadAcquire()
		if q.hdr.full(head, tail) {
			wait(&q.hdr.tail, tail)
		}
	}
}

// ringBell implements §4.3 step 4: publish and, if the consumer is
// parked, wake it.
func (q *RawQueue[T]) ringBell(ring RingFunc) {
	q.hdr.bell.AddAcqRel(1)
	if q.hdr.consumerWaiting() {
		ring(&q.hdr.bell)
	}
}

// Receive waits for the next entry in reservation order and returns
// it. Only one goroutine may call Receive at a time; the algorithm
// does not serialize concurrent consumers.
//
// If the queue is empty, Receive either parks (via wait) until a
// Submit publishes an entry, or, if flags includes NonBlockReceive,
// returns ErrWouldBlock immediately.
func (q *RawQueue[T]) Receive(wait WaitFunc, ring RingFunc, flags ReceiveFlags) (Entry[T], error) {
	var zero Entry[T]

	t, err := q.nextReady(flags, wait)
	if err != nil {
		return zero, err
	}

	entry := *q.slot(uint32(t))
	q.advanceTail(t, ring)
	return entry, nil
}

// nextReady implements §4.4 steps 1-2: find the next slot whose turn
// bit matches the consumer's expected turn at the current tail.
func (q *RawQueue[T]) nextReady(flags ReceiveFlags, wait WaitFunc) (uint64, error) {
	t := q.hdr.tail.LoadAcquire() & tailMask

	sw := spin.Wait{}
	attempts := spinAttempts
	parked := false
	for {
		bell := q.hdr.bell.LoadAcquire()
		slot := q.slot(uint32(t))
		ready := !q.hdr.isEmpty(bell, t) && slot.readyForTurn(q.hdr.oddTurn(t))
		if ready {
			break
		}

		if flags.has(NonBlockReceive) {
			return 0, ErrWouldBlock
		}

		if attempts > 0 {
			attempts--
			sw.Once()
			continue
		}

		if !parked {
			parked = true
			q.hdr.setConsumerWaiting(true)
		}

		bell = q.hdr.bell.LoadAcquire()
		if q.hdr.isEmpty(bell, t) || !slot.readyForTurn(q.hdr.oddTurn(t)) {
			wait(&q.hdr.bell, bell)
		}
	}

	if parked {
		q.hdr.setConsumerWaiting(false)
	}
	return t, nil
}

// advanceTail implements §4.4 steps 4: publish the new tail and wake a
// parked producer if one is waiting for the space just freed.
func (q *RawQueue[T]) advanceTail(t uint64, ring RingFunc) {
	q.hdr.tail.StoreRelease((t + 1) & tailMask)
	if q.hdr.submitterWaiting() {
		ring(&q.hdr.tail)
	}
}
