// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/shmq"
)

// =============================================================================
// S1: FIFO delivery and round-trip fidelity
// =============================================================================

func TestSubmitReceiveRoundTrip(t *testing.T) {
	q := shmq.NewQueue[int](16) // l2len=4, capacity 16

	for i := 0; i < 100; i++ {
		entry := shmq.NewEntry(uint32(i), i*10)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
		got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
		if err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
		if got.Info != uint32(i) || got.Data != i*10 {
			t.Fatalf("Receive(%d): got (%d,%d), want (%d,%d)", i, got.Info, got.Data, i, i*10)
		}
	}
}

// =============================================================================
// S2: Backpressure
// =============================================================================

func TestSubmitNonBlockWouldBlockWhenFull(t *testing.T) {
	q := shmq.NewQueue[int](4) // l2len=2, capacity 4

	for i := 0; i < 4; i++ {
		entry := shmq.NewEntry(uint32(i), i)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}

	entry := shmq.NewEntry(99, 99)
	err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock)
	if !errors.Is(err, shmq.ErrWouldBlock) {
		t.Fatalf("Submit on full queue: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// S3: Non-blocking receive on empty
// =============================================================================

func TestReceiveNonBlockWouldBlockWhenEmpty(t *testing.T) {
	q := shmq.NewQueue[int](16)

	entry := shmq.NewEntry(1, 7)
	if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Info != 1 || got.Data != 7 {
		t.Fatalf("Receive: got (%d,%d), want (1,7)", got.Info, got.Data)
	}

	if _, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive); !errors.Is(err, shmq.ErrWouldBlock) {
		t.Fatalf("Receive on empty: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Blocking handoff: a parked Submit resumes once Receive frees space
// =============================================================================

func TestBlockingSubmitUnblocksOnReceive(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: parking relies on cross-word ordering the race detector can't see")
	}

	q := shmq.NewQueue[int](2) // l2len=1, capacity 2
	var parker shmq.ChannelParker

	for i := 0; i < 2; i++ {
		entry := shmq.NewEntry(uint32(i), i)
		if err := q.Submit(entry, parker.Wait, parker.Ring, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}

	blocked := make(chan error, 1)
	go func() {
		entry := shmq.NewEntry(2, 2)
		blocked <- q.Submit(entry, parker.Wait, parker.Ring, 0)
	}()

	select {
	case err := <-blocked:
		t.Fatalf("Submit returned before space was freed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Receive(parker.Wait, parker.Ring, shmq.NonBlockReceive); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("blocked Submit: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("blocked Submit never unblocked after a Receive freed space")
	}
}

// =============================================================================
// Blocking handoff: a parked Receive resumes once Submit publishes
// =============================================================================

func TestBlockingReceiveUnblocksOnSubmit(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: parking relies on cross-word ordering the race detector can't see")
	}

	q := shmq.NewQueue[int](16)
	var parker shmq.ChannelParker

	received := make(chan shmq.Entry[int], 1)
	go func() {
		got, err := q.Receive(parker.Wait, parker.Ring, 0)
		if err != nil {
			t.Errorf("Receive: %v", err)
			return
		}
		received <- got
	}()

	select {
	case got := <-received:
		t.Fatalf("Receive returned before any Submit: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}

	entry := shmq.NewEntry(5, 55)
	if err := q.Submit(entry, parker.Wait, parker.Ring, shmq.NonBlock); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case got := <-received:
		if got.Info != 5 || got.Data != 55 {
			t.Fatalf("Receive: got (%d,%d), want (5,55)", got.Info, got.Data)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("blocked Receive never unblocked after a Submit published")
	}
}

// =============================================================================
// Blocking handoff via the real FutexWait/FutexWake pair, not just
// ChannelParker. On linux/{amd64,arm64} this parks via SYS_FUTEX; on every
// other platform futex_other.go's spin-based fallback still honors the
// same WaitFunc/RingFunc contract, so this test needs no build tag.
// =============================================================================

func TestBlockingSubmitReceiveViaFutex(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: parking relies on cross-word ordering the race detector can't see")
	}

	q := shmq.NewQueue[int](2) // l2len=1, capacity 2

	for i := 0; i < 2; i++ {
		entry := shmq.NewEntry(uint32(i), i)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}

	blockedSubmit := make(chan error, 1)
	go func() {
		entry := shmq.NewEntry(2, 2)
		blockedSubmit <- q.Submit(entry, shmq.FutexWait, shmq.FutexWake, 0)
	}()

	select {
	case err := <-blockedSubmit:
		t.Fatalf("Submit returned before space was freed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	for i := 0; i < 2; i++ {
		if _, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive); err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
	}

	select {
	case err := <-blockedSubmit:
		if err != nil {
			t.Fatalf("blocked Submit: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("blocked Submit never unblocked after Receive freed space")
	}

	// Drain the entry the unblocked Submit just published, so the queue is
	// empty before the blocking-Receive half of the test.
	got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
	if err != nil {
		t.Fatalf("Receive(unblocked entry): %v", err)
	}
	if got.Info != 2 || got.Data != 2 {
		t.Fatalf("Receive(unblocked entry): got (%d,%d), want (2,2)", got.Info, got.Data)
	}

	blockedReceive := make(chan shmq.Entry[int], 1)
	go func() {
		got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, 0)
		if err != nil {
			t.Errorf("blocked Receive: %v", err)
			return
		}
		blockedReceive <- got
	}()

	select {
	case got := <-blockedReceive:
		t.Fatalf("Receive returned before any Submit: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}

	entry := shmq.NewEntry(9, 90)
	if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case got := <-blockedReceive:
		if got.Info != 9 || got.Data != 90 {
			t.Fatalf("Receive: got (%d,%d), want (9,90)", got.Info, got.Data)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("blocked Receive never unblocked after a Submit published")
	}
}

// =============================================================================
// Capacity wraparound: many revolutions exercise the turn-bit alternation
// =============================================================================

func TestWraparoundPreservesFIFOAndFidelity(t *testing.T) {
	q := shmq.NewQueue[int](16) // l2len=4
	const n = 16 * 10          // ten full revolutions

	for i := 0; i < n; i++ {
		entry := shmq.NewEntry(uint32(i), i*3)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
		got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
		if err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
		if got.Info != uint32(i) || got.Data != i*3 {
			t.Fatalf("Receive(%d): got (%d,%d), want (%d,%d)", i, got.Info, got.Data, i, i*3)
		}
	}
}

// S4: consumer loop that exits on a sentinel value, after many prior
// submits all succeeded.
func TestConsumerExitsOnSentinel(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: parking relies on cross-word ordering the race detector can't see")
	}

	q := shmq.NewQueue[int](16)
	var parker shmq.ChannelParker

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			got, err := q.Receive(parker.Wait, parker.Ring, 0)
			if err != nil {
				t.Errorf("Receive: %v", err)
				return
			}
			if got.Info == 2 {
				return
			}
		}
	}()

	const many = 5000
	for i := 0; i < many; i++ {
		entry := shmq.NewEntry(1, 2)
		if err := q.Submit(entry, parker.Wait, parker.Ring, 0); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}
	entry := shmq.NewEntry(2, 2)
	if err := q.Submit(entry, parker.Wait, parker.Ring, 0); err != nil {
		t.Fatalf("Submit sentinel: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("consumer never observed the sentinel")
	}
}

// =============================================================================
// S5 / property 8: concurrent producers, single consumer
// =============================================================================

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	if shmq.RaceEnabled {
		t.Skip("skip: parking relies on cross-word ordering the race detector can't see")
	}

	const (
		numProducers = 4
		itemsPerProd = 10000
		timeout      = 20 * time.Second
	)

	q := shmq.NewQueue[int](256)
	var parker shmq.ChannelParker

	var wg sync.WaitGroup
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < itemsPerProd; i++ {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				entry := shmq.NewEntry(uint32(id), i)
				if err := q.Submit(entry, parker.Wait, parker.Ring, 0); err != nil {
					t.Errorf("producer %d Submit(%d): %v", id, i, err)
					return
				}
			}
		}(p)
	}

	expectedTotal := numProducers * itemsPerProd
	perProducer := make([][]int, numProducers)
	for i := range perProducer {
		perProducer[i] = make([]int, 0, itemsPerProd)
	}

	consumed := 0
	for consumed < expectedTotal {
		if time.Now().After(deadline) {
			timedOut.Store(true)
			break
		}
		got, err := q.Receive(parker.Wait, parker.Ring, 0)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		perProducer[got.Info] = append(perProducer[got.Info], got.Data)
		consumed++
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timed out: consumed %d/%d", consumed, expectedTotal)
	}
	if consumed != expectedTotal {
		t.Fatalf("consumed %d items, want %d", consumed, expectedTotal)
	}
	for id, seq := range perProducer {
		if len(seq) != itemsPerProd {
			t.Fatalf("producer %d: got %d items, want %d", id, len(seq), itemsPerProd)
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("producer %d: FIFO violation at %d: got %d, want %d", id, i, v, i)
			}
		}
	}
}

// =============================================================================
// Non-blocking Submit never advances head on WouldBlock (§9 open question)
// =============================================================================

func TestNonBlockSubmitDoesNotStallConsumer(t *testing.T) {
	q := shmq.NewQueue[int](4)

	for i := 0; i < 4; i++ {
		entry := shmq.NewEntry(uint32(i), i)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}

	// Several WouldBlock attempts while full must not reserve slots that
	// would later stall the consumer.
	for i := 0; i < 10; i++ {
		entry := shmq.NewEntry(999, 999)
		if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); !errors.Is(err, shmq.ErrWouldBlock) {
			t.Fatalf("Submit while full (attempt %d): got %v, want ErrWouldBlock", i, err)
		}
	}

	for i := 0; i < 4; i++ {
		got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
		if err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
		if got.Info != uint32(i) {
			t.Fatalf("Receive(%d): got info %d, want %d", i, got.Info, i)
		}
	}

	// Queue must now accept a fresh submit/receive cycle with no stalled
	// slot left behind by the earlier WouldBlock attempts.
	entry := shmq.NewEntry(42, 42)
	if err := q.Submit(entry, shmq.FutexWait, shmq.FutexWake, shmq.NonBlock); err != nil {
		t.Fatalf("Submit after drain: %v", err)
	}
	got, err := q.Receive(shmq.FutexWait, shmq.FutexWake, shmq.NonBlockReceive)
	if err != nil {
		t.Fatalf("Receive after drain: %v", err)
	}
	if got.Info != 42 || got.Data != 42 {
		t.Fatalf("Receive after drain: got (%d,%d), want (42,42)", got.Info, got.Data)
	}
}

// =============================================================================
// Capacity rounds up to the next power of two
// =============================================================================

func TestNewQueueCapacityRoundsUp(t *testing.T) {
	q := shmq.NewQueue[int](3)
	if got := q.Cap(); got != 4 {
		t.Fatalf("Cap: got %d, want 4", got)
	}
	if got := q.Header().Cap(); got != 4 {
		t.Fatalf("Header().Cap: got %d, want 4", got)
	}
}
