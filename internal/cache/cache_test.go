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

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("profile:u1", "Alice")

	val, ok := c.Get("profile:u1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if val.(string) != "Alice" {
		t.Errorf("expected Alice, got %v", val)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss for unknown key")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("profile:u1", "Alice")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("profile:u1"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	c.SetWithTTL("long", "value", time.Hour)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("short-TTL entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long-TTL entry should still be present")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("profile:u1", "Alice")
	c.Delete("profile:u1")

	if _, ok := c.Get("profile:u1"); ok {
		t.Error("expected deleted entry to miss")
	}

	// Deleting a missing key is a no-op
	c.Delete("missing")
}

func TestCacheClear(t *testing.T) {
	c := New(time.Minute)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
	}
	c.Clear()

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("expected 0 keys after clear, got %d", stats.TotalKeys)
	}
	if stats.Evictions < 10 {
		t.Errorf("expected at least 10 evictions, got %d", stats.Evictions)
	}
}

func TestCacheHitRate(t *testing.T) {
	c := New(time.Minute)

	if c.HitRate() != 0.0 {
		t.Error("empty cache should report 0 hit rate")
	}

	c.Set("key", "value")
	c.Get("key")    // hit
	c.Get("absent") // miss

	if got := c.HitRate(); got != 50.0 {
		t.Errorf("expected 50%% hit rate, got %.2f", got)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			c.Set(key, n)
			c.Get(key)
			c.Delete(key)
		}(i)
	}
	wg.Wait()
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		UserID string
		RoomID string
	}

	k1 := GenerateKey("profile", params{UserID: "u1", RoomID: "r1"})
	k2 := GenerateKey("profile", params{UserID: "u1", RoomID: "r1"})
	k3 := GenerateKey("profile", params{UserID: "u2", RoomID: "r1"})

	if k1 != k2 {
		t.Error("identical params should produce identical keys")
	}
	if k1 == k3 {
		t.Error("different params should produce different keys")
	}
}
