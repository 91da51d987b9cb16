// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package presence tracks which identities are currently live in each room.
//
// The tracker is the authority for the online term of the unread snapshot:
// unread = max(0, participants - online) at the instant a message is
// ingested. Entries carry a last-activity timestamp and a background
// janitor evicts entries whose transport died without a disconnect, so a
// crashed client cannot pin a room's online count forever.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
)

// Tracker is a thread-safe registry of (room, identity) presence entries.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[int64]map[string]time.Time

	ttl           time.Duration
	sweepInterval time.Duration

	// now is swappable for deterministic TTL tests
	now func() time.Time
}

// NewTracker creates a tracker whose entries expire after ttl without
// activity. The janitor runs every sweepInterval once Serve is started.
func NewTracker(ttl, sweepInterval time.Duration) *Tracker {
	return &Tracker{
		rooms:         make(map[int64]map[string]time.Time),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// Join marks an identity online in a room. Joining twice refreshes the
// activity timestamp and is otherwise a no-op: the set semantics make the
// operation idempotent.
func (t *Tracker) Join(roomID int64, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		room = make(map[string]time.Time)
		t.rooms[roomID] = room
	}
	room[userID] = t.now()
	t.updateGaugeLocked()
}

// Leave removes an identity from a room. Unknown pairs are a no-op.
func (t *Tracker) Leave(roomID int64, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(roomID, userID)
	t.updateGaugeLocked()
}

func (t *Tracker) leaveLocked(roomID int64, userID string) {
	room, ok := t.rooms[roomID]
	if !ok {
		return
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(t.rooms, roomID)
	}
}

// RegisterActivity refreshes the activity timestamp for an identity already
// in the room, joining it when absent. Read receipts and inbound WebSocket
// actions both funnel through here, doubling as a presence heartbeat.
func (t *Tracker) RegisterActivity(roomID int64, userID string) {
	t.Join(roomID, userID)
}

// OnlineCount returns the number of identities currently live in a room.
func (t *Tracker) OnlineCount(roomID int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[roomID])
}

// IsOnline reports whether an identity is live in a room.
func (t *Tracker) IsOnline(roomID int64, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

// OnlineUsers returns the identities currently live in a room.
func (t *Tracker) OnlineUsers(roomID int64) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	room := t.rooms[roomID]
	users := make([]string, 0, len(room))
	for userID := range room {
		users = append(users, userID)
	}
	return users
}

// DisconnectAll removes an identity from every room it is live in and
// returns the affected room ids. Called when a WebSocket connection drops.
func (t *Tracker) DisconnectAll(userID string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []int64
	for roomID, room := range t.rooms {
		if _, ok := room[userID]; ok {
			affected = append(affected, roomID)
			t.leaveLocked(roomID, userID)
		}
	}
	t.updateGaugeLocked()
	return affected
}

// Serve runs the TTL janitor until ctx is cancelled. It satisfies
// suture.Service so the tracker slots into the supervision tree.
func (t *Tracker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	logging.Info().
		Dur("ttl", t.ttl).
		Dur("sweep_interval", t.sweepInterval).
		Msg("Presence janitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if evicted := t.sweep(); evicted > 0 {
				logging.Debug().Int("evicted", evicted).Msg("Presence janitor evicted stale entries")
			}
		}
	}
}

// sweep evicts entries older than the TTL and returns the eviction count.
func (t *Tracker) sweep() int {
	cutoff := t.now().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for roomID, room := range t.rooms {
		for userID, lastSeen := range room {
			if lastSeen.Before(cutoff) {
				delete(room, userID)
				evicted++
			}
		}
		if len(room) == 0 {
			delete(t.rooms, roomID)
		}
	}

	if evicted > 0 {
		metrics.PresenceEvictions.Add(float64(evicted))
	}
	t.updateGaugeLocked()
	return evicted
}

// updateGaugeLocked refreshes the online gauge. Caller must hold t.mu.
func (t *Tracker) updateGaugeLocked() {
	total := 0
	for _, room := range t.rooms {
		total += len(room)
	}
	metrics.PresenceOnline.Set(float64(total))
}

// String identifies the service in supervisor logs.
func (t *Tracker) String() string {
	return "presence-janitor"
}
