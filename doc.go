// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmq provides a raw, lock-free, multi-producer single-consumer
// bounded queue designed to live in shared memory: the header and the
// entry buffer make no assumption about being mapped by the same
// allocator, the same process, or even the same privilege level.
//
// # Quick Start
//
// Process-local queue, the common case:
//
//	q := shmq.NewQueue[int](1024)
//
//	entry := shmq.NewEntry(uint32(7), 42)
//	if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
//	    // full, and NonBlock was set
//	}
//
//	got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, 0)
//	if err == nil {
//	    fmt.Println(got.Info, got.Data)
//	}
//
// # The Header/Buffer Split
//
// A RawQueue binds a [Header] (counters: head, tail, bell, waiters) to
// a buffer of [Entry] values. Submit and Receive never allocate or
// map anything — [NewQueue] is a convenience that allocates both out
// of plain Go memory, but [NewRawQueue] accepts a Header and buffer
// from anywhere, and [InitShared]/[OpenShared] carve both out of one
// shared memory region (see code.hybscloud.com/shmq/internal/shm for
// the mmap-backed region this package's tests exercise it with).
//
// This split exists because the queue is meant to sit on a trust
// boundary: a kernel and a userspace process, or two unrelated
// userspace processes, each mapping their own view of the same bytes.
// Neither side owns the memory; both sides just agree on its layout.
//
// # Turns and the Doorbell
//
// Producers reserve a slot with a compare-and-swap on Header.head once
// they have seen that the queue is not full, write the payload, then
// stamp the slot's control word with the high bit set to the current
// turn — 1 on even revolutions of the buffer, 0 on odd ones, so an
// all-zero buffer never reads as fresh data — and increment the
// doorbell (Header.bell).
//
// The consumer never clears a slot on receive: instead it compares the
// slot's stamped turn against the turn it expects at its current tail
// position. Because the turn alternates every revolution, a slot that
// still holds last revolution's stamp is unambiguously stale, without
// needing to zero anything after Receive copies the payload out.
//
// # Blocking and the Wait/Ring Contract
//
// Submit and Receive spin briefly, then park via a caller-supplied
// [WaitFunc] if the queue stays full (Submit) or empty (Receive).
// [FutexWait]/[FutexWake] are the production implementation on Linux,
// addressing the doorbell or tail word directly by pointer — which
// works whether the two sides share a Go runtime or not. Passing
// NonBlock / NonBlockReceive skips parking entirely and returns
// [ErrWouldBlock] instead.
//
// WaitFunc must tolerate spurious wakeups: Submit and Receive always
// re-check their predicate after a wait call returns, regardless of
// why it returned.
//
// # Single Consumer
//
// Only one goroutine (or thread, or process) may call Receive at a
// time — the algorithm does not serialize concurrent consumers, and
// nothing detects a violation. Any number of producers may call
// Submit concurrently with each other and with the one Receive caller.
//
// # Ordering
//
// Producers reserve slots in a strict FIFO order (the head
// compare-and-swap establishes a total order), but a producer that reserves a later
// slot may finish filling and stamping it before an earlier producer
// finishes with its own slot. The consumer does not skip ahead: it
// waits for whichever slot is next in line, so entries are always
// delivered to Receive in reservation order, just not necessarily in
// the order each producer's Submit call returns.
//
// # What This Package Does Not Do
//
// No teardown protocol beyond letting both sides stop mapping the
// memory; no draining requirement; no multi-consumer dequeue; no
// priority or fairness beyond FIFO reservation order; no persistence
// across process restarts; no cancellation of a reservation already
// made (a producer that dies between reserving and publishing stalls
// the consumer on that slot: no other producer can reserve it again
// while the consumer's tail still points at it). A higher layer that binds raw queues to
// a shared object system, negotiates capacity, and serializes payloads
// across the trust boundary is out of scope here by design — this
// package is the part of that stack meant to be reused unchanged on
// either side of it.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU
// pause instructions in its bounded spin loops, and
// [code.hybscloud.com/iox] for semantic errors. [golang.org/x/sys/unix]
// backs the default futex-based wait/wake implementation on Linux.
package shmq
