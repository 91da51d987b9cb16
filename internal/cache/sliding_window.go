// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package cache

import (
	"sync"
	"time"
)

// SlidingWindowCounter counts events over a rolling time window using
// fixed-size buckets. Old buckets expire as time advances, so the count
// reflects only the most recent window. Used to throttle the inbound
// action rate of a single WebSocket connection.
type SlidingWindowCounter struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	numBuckets int
	head       int
	headStart  time.Time
}

// NewSlidingWindowCounter creates a counter covering windowSize split
// into numBuckets buckets. More buckets means a smoother rollover at the
// cost of a slightly larger struct.
func NewSlidingWindowCounter(windowSize time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets < 1 {
		numBuckets = 1
	}
	return &SlidingWindowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: windowSize / time.Duration(numBuckets),
		numBuckets: numBuckets,
		headStart:  time.Now(),
	}
}

// Increment adds delta to the current bucket.
func (sw *SlidingWindowCounter) Increment(delta int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.advance()
	sw.buckets[sw.head] += delta
}

// IncrementOne adds one to the current bucket.
func (sw *SlidingWindowCounter) IncrementOne() {
	sw.Increment(1)
}

// Count returns the total over the rolling window.
func (sw *SlidingWindowCounter) Count() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.advance()

	var total int64
	for _, b := range sw.buckets {
		total += b
	}
	return total
}

// Reset zeroes all buckets.
func (sw *SlidingWindowCounter) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	for i := range sw.buckets {
		sw.buckets[i] = 0
	}
	sw.head = 0
	sw.headStart = time.Now()
}

// advance rotates the ring forward, zeroing buckets that have aged out.
// Caller must hold sw.mu.
func (sw *SlidingWindowCounter) advance() {
	now := time.Now()
	elapsed := now.Sub(sw.headStart)
	if elapsed < sw.bucketSize {
		return
	}

	steps := int(elapsed / sw.bucketSize)
	if steps >= sw.numBuckets {
		// Entire window has aged out
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
		sw.head = 0
		sw.headStart = now
		return
	}

	for i := 0; i < steps; i++ {
		sw.head = (sw.head + 1) % sw.numBuckets
		sw.buckets[sw.head] = 0
	}
	sw.headStart = sw.headStart.Add(time.Duration(steps) * sw.bucketSize)
}

// SlidingWindowStore maintains a sliding window counter per key with a
// bounded key count. The hub keys it by connection id so one chatty
// client cannot starve the rest of a room.
type SlidingWindowStore struct {
	mu         sync.Mutex
	counters   map[string]*storeEntry
	windowSize time.Duration
	numBuckets int
	maxKeys    int
}

type storeEntry struct {
	counter  *SlidingWindowCounter
	lastSeen time.Time
}

// NewSlidingWindowStore creates a store holding at most maxKeys counters.
// When the store is full the least recently used key is evicted.
func NewSlidingWindowStore(windowSize time.Duration, numBuckets, maxKeys int) *SlidingWindowStore {
	return &SlidingWindowStore{
		counters:   make(map[string]*storeEntry),
		windowSize: windowSize,
		numBuckets: numBuckets,
		maxKeys:    maxKeys,
	}
}

// Increment adds one to the counter for key, creating it if needed.
func (s *SlidingWindowStore) Increment(key string) {
	s.IncrementBy(key, 1)
}

// IncrementBy adds delta to the counter for key, creating it if needed.
func (s *SlidingWindowStore) IncrementBy(key string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[key]
	if !ok {
		if s.maxKeys > 0 && len(s.counters) >= s.maxKeys {
			s.evictOldest()
		}
		entry = &storeEntry{
			counter: NewSlidingWindowCounter(s.windowSize, s.numBuckets),
		}
		s.counters[key] = entry
	}
	entry.lastSeen = time.Now()
	entry.counter.Increment(delta)
}

// Count returns the rolling window total for key, zero for unknown keys.
func (s *SlidingWindowStore) Count(key string) int64 {
	s.mu.Lock()
	entry, ok := s.counters[key]
	s.mu.Unlock()

	if !ok {
		return 0
	}
	return entry.counter.Count()
}

// Remove drops the counter for key. Called when a connection closes.
func (s *SlidingWindowStore) Remove(key string) {
	s.mu.Lock()
	delete(s.counters, key)
	s.mu.Unlock()
}

// Len returns the number of tracked keys.
func (s *SlidingWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Clear removes all counters.
func (s *SlidingWindowStore) Clear() {
	s.mu.Lock()
	s.counters = make(map[string]*storeEntry)
	s.mu.Unlock()
}

// CleanupInactive removes counters idle for more than two window sizes
// and returns the number removed.
func (s *SlidingWindowStore) CleanupInactive() int {
	cutoff := time.Now().Add(-2 * s.windowSize)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.counters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the least recently touched key. Caller must hold s.mu.
func (s *SlidingWindowStore) evictOldest() {
	var oldestKey string
	var oldestSeen time.Time
	first := true

	for key, entry := range s.counters {
		if first || entry.lastSeen.Before(oldestSeen) {
			oldestKey = key
			oldestSeen = entry.lastSeen
			first = false
		}
	}

	if oldestKey != "" {
		delete(s.counters, oldestKey)
	}
}
