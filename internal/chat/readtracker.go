// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import (
	"context"
	"time"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/models"
)

// MarkRead advances the caller's read marker to now and broadcasts the read
// receipt. A read is also an implicit presence heartbeat: a client that reads
// is a client that is looking, so it refreshes the online set even if its
// socket is on another node.
//
// The marker only moves forward in practice, since reads are timestamped
// server-side, but no clamping is done; idempotent re-reads are harmless.
func (s *Service) MarkRead(ctx context.Context, roomID int64, userID string) error {
	if _, err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.db.SetLastRead(ctx, roomID, userID, now); err != nil {
		return err
	}

	s.presence.RegisterActivity(roomID, userID)

	event := &models.ReadEvent{
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: now,
	}
	if err := s.broadcaster.PublishReadEvent(event); err != nil {
		// Read markers are durable; the live receipt is best-effort.
		logging.Warn().Err(err).Int64("room_id", roomID).Str("user_id", userID).
			Msg("Failed to publish read event")
	}
	return nil
}
