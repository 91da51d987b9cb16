// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSlidingWindowCounterBasic(t *testing.T) {
	sw := NewSlidingWindowCounter(time.Second, 10)

	sw.IncrementOne()
	sw.IncrementOne()
	sw.Increment(3)

	if got := sw.Count(); got != 5 {
		t.Errorf("expected count 5, got %d", got)
	}
}

func TestSlidingWindowCounterExpiry(t *testing.T) {
	sw := NewSlidingWindowCounter(50*time.Millisecond, 5)

	sw.Increment(10)
	if got := sw.Count(); got != 10 {
		t.Fatalf("expected count 10, got %d", got)
	}

	// After the window has fully passed the count drops to zero
	time.Sleep(80 * time.Millisecond)
	if got := sw.Count(); got != 0 {
		t.Errorf("expected count 0 after window, got %d", got)
	}
}

func TestSlidingWindowCounterReset(t *testing.T) {
	sw := NewSlidingWindowCounter(time.Second, 4)

	sw.Increment(7)
	sw.Reset()

	if got := sw.Count(); got != 0 {
		t.Errorf("expected count 0 after reset, got %d", got)
	}
}

func TestSlidingWindowStorePerKey(t *testing.T) {
	s := NewSlidingWindowStore(time.Second, 10, 100)

	s.Increment("conn1")
	s.Increment("conn1")
	s.Increment("conn2")

	if got := s.Count("conn1"); got != 2 {
		t.Errorf("expected conn1 count 2, got %d", got)
	}
	if got := s.Count("conn2"); got != 1 {
		t.Errorf("expected conn2 count 1, got %d", got)
	}
	if got := s.Count("unknown"); got != 0 {
		t.Errorf("expected unknown key count 0, got %d", got)
	}
}

func TestSlidingWindowStoreRemove(t *testing.T) {
	s := NewSlidingWindowStore(time.Second, 10, 100)

	s.Increment("conn1")
	s.Remove("conn1")

	if got := s.Count("conn1"); got != 0 {
		t.Errorf("expected count 0 after remove, got %d", got)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d keys", s.Len())
	}
}

func TestSlidingWindowStoreMaxKeys(t *testing.T) {
	s := NewSlidingWindowStore(time.Second, 4, 3)

	for i := 0; i < 5; i++ {
		s.Increment(fmt.Sprintf("conn%d", i))
		time.Sleep(time.Millisecond)
	}

	if s.Len() > 3 {
		t.Errorf("expected at most 3 keys, got %d", s.Len())
	}

	// The newest key survived eviction
	if got := s.Count("conn4"); got != 1 {
		t.Errorf("expected newest key to survive, count %d", got)
	}
}

func TestSlidingWindowStoreCleanupInactive(t *testing.T) {
	s := NewSlidingWindowStore(10*time.Millisecond, 2, 100)

	s.Increment("stale")
	time.Sleep(30 * time.Millisecond)
	s.Increment("fresh")

	removed := s.CleanupInactive()
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 remaining key, got %d", s.Len())
	}
}

func TestSlidingWindowStoreConcurrent(t *testing.T) {
	s := NewSlidingWindowStore(time.Second, 10, 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("conn%d", n%4)
			s.Increment(key)
			s.Count(key)
		}(i)
	}
	wg.Wait()

	var total int64
	for i := 0; i < 4; i++ {
		total += s.Count(fmt.Sprintf("conn%d", i))
	}
	if total != 20 {
		t.Errorf("expected total 20 across keys, got %d", total)
	}
}
