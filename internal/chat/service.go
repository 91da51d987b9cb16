// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package chat implements the room chat engine: message ingest with
// immutable unread snapshots, read tracking, poll and bill-split
// sub-protocols, room membership and history paging.
//
// Concurrency model: per-room ingest is serialized by a room mutex so that
// the presence snapshot, the room_seq assignment and the broadcast happen
// as one ordered unit. Vote casts are serialized per vote. Everything else
// runs concurrently.
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/fanout"
	"github.com/minglehq/mingle/internal/models"
	"github.com/minglehq/mingle/internal/presence"
)

// Directory resolves identities to display profiles. Lookups are
// best-effort: a failure degrades to the raw identity, never to a refused
// message.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Notifier pushes out-of-band notifications to offline participants.
// Calls are fire-and-forget.
type Notifier interface {
	NotifyRoomMessage(ctx context.Context, roomID int64, senderName, preview string)
}

// Gate authorizes joins against the meetup membership service.
type Gate interface {
	CanJoin(ctx context.Context, userID string, roomID int64) error
}

// Service is the chat engine facade used by the API and WebSocket layers.
type Service struct {
	db          *database.DB
	presence    *presence.Tracker
	broadcaster *fanout.Broadcaster
	directory   Directory
	notifier    Notifier
	gate        Gate
	cfg         *config.ChatConfig

	// Per-room ingest serialization. Entries are never removed; the
	// working set is bounded by the number of live rooms.
	ingestMu sync.Map // int64 -> *sync.Mutex

	// Per-vote cast serialization.
	castMu sync.Map // int64 -> *sync.Mutex
}

// NewService wires the chat engine. notifier and gate may be nil, in which
// case notifications are skipped and every join is allowed.
func NewService(db *database.DB, tracker *presence.Tracker, broadcaster *fanout.Broadcaster,
	directory Directory, notifier Notifier, gate Gate, cfg *config.ChatConfig) *Service {
	return &Service{
		db:          db,
		presence:    tracker,
		broadcaster: broadcaster,
		directory:   directory,
		notifier:    notifier,
		gate:        gate,
		cfg:         cfg,
	}
}

// Presence exposes the tracker for the WebSocket layer.
func (s *Service) Presence() *presence.Tracker {
	return s.presence
}

// roomLock returns the ingest mutex for a room, creating it on first use.
func (s *Service) roomLock(roomID int64) *sync.Mutex {
	mu, _ := s.ingestMu.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// voteLock returns the cast mutex for a vote, creating it on first use.
func (s *Service) voteLock(voteID int64) *sync.Mutex {
	mu, _ := s.castMu.LoadOrStore(voteID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// displayName resolves an identity's display name, degrading to the raw
// identity when the directory is unavailable.
func (s *Service) displayName(ctx context.Context, userID string) string {
	if s.directory == nil {
		return userID
	}
	profile, err := s.directory.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		return userID
	}
	return profile.DisplayName()
}

// requireParticipant loads the actor's active membership or fails with
// ErrNotParticipant. Unknown rooms surface as ErrRoomNotFound.
func (s *Service) requireParticipant(ctx context.Context, roomID int64, userID string) (*models.Participant, error) {
	if _, err := s.db.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	p, err := s.db.GetParticipant(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return p, nil
}

// CheckMembership reports whether the identity is an active participant of
// the room. Used by the WebSocket layer to authorize channel subscriptions.
func (s *Service) CheckMembership(ctx context.Context, roomID int64, userID string) error {
	_, err := s.requireParticipant(ctx, roomID, userID)
	return err
}

// requireOrganizer is requireParticipant plus a role check.
func (s *Service) requireOrganizer(ctx context.Context, roomID int64, userID string) (*models.Participant, error) {
	p, err := s.requireParticipant(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleOrganizer {
		return nil, ErrForbidden
	}
	return p, nil
}
