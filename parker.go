// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// ChannelParker is a process-local WaitFunc/RingFunc pair for queues
// that never leave one address space: tests, examples, and anywhere
// the real cross-process wake-up cost of [FutexWait]/[FutexWake] isn't
// worth paying. It is built on a single sync.Cond rather than per-word
// channels, because a condvar's Wait atomically unlocks and parks
// under the same mutex Ring locks to broadcast — a channel handoff
// needs its own bookkeeping to avoid the same race, and getting that
// bookkeeping wrong reintroduces exactly the lost-wakeup bug this
// package's wait/ring contract is designed to rule out.
//
// One ChannelParker may back any number of distinct words (head queue
// tail, multiple queues' bells, ...); all of them share the same
// mutex, so a ChannelParker is a coarse, convenience synchronization
// point, not a scalable one. Use [FutexWait]/[FutexWake] directly for
// anything contention-sensitive.
type ChannelParker struct {
	mu   sync.Mutex
	cond sync.Cond
	init sync.Once
}

func (p *ChannelParker) lazyInit() {
	p.init.Do(func() { p.cond.L = &p.mu })
}

// Wait blocks until *word no longer equals expected.
func (p *ChannelParker) Wait(word *atomix.Uint64, expected uint64) {
	p.lazyInit()
	p.mu.Lock()
	defer p.mu.Unlock()
	for word.LoadAcquire() == expected {
		p.cond.Wait()
	}
}

// Ring wakes every goroutine parked in Wait, regardless of which word
// it was waiting on; callers re-check their own predicate after
// waking, per the WaitFunc contract, so the over-broad wake is benign.
func (p *ChannelParker) Ring(*atomix.Uint64) {
	p.lazyInit()
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}
