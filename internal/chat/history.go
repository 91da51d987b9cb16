// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import (
	"context"

	"github.com/minglehq/mingle/internal/models"
)

// History returns up to limit messages with room sequence strictly greater
// than afterSeq, oldest first. afterSeq 0 reads from the beginning; clients
// page forward by passing the last sequence they hold. Messages are returned
// exactly as stored: unread counts are the frozen send-time snapshots and
// POLL metadata is the current redacted tally projection.
func (s *Service) History(ctx context.Context, roomID int64, callerID string, afterSeq int64, limit int) ([]models.ChatEvent, error) {
	if _, err := s.requireParticipant(ctx, roomID, callerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.HistoryPageSize
	}
	if limit > s.cfg.MaxHistoryPageSize {
		limit = s.cfg.MaxHistoryPageSize
	}
	if afterSeq < 0 {
		afterSeq = 0
	}

	messages, err := s.db.GetMessages(ctx, roomID, afterSeq, limit)
	if err != nil {
		return nil, err
	}

	// Sender names repeat heavily within a page; memoize per call on top
	// of the directory's own cache.
	names := make(map[string]string, 8)
	events := make([]models.ChatEvent, 0, len(messages))
	for _, msg := range messages {
		name, ok := names[msg.Sender]
		if !ok {
			name = s.displayName(ctx, msg.Sender)
			names[msg.Sender] = name
		}
		events = append(events, models.ChatEvent{
			MessageID:   msg.ID,
			RoomID:      msg.RoomID,
			RoomSeq:     msg.RoomSeq,
			Type:        string(msg.Type),
			Content:     msg.Content,
			SenderID:    msg.Sender,
			SenderName:  name,
			UnreadCount: msg.UnreadCount,
			Metadata:    msg.Metadata,
			SentAt:      msg.CreatedAt,
		})
	}
	return events, nil
}
