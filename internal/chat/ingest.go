// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// SendText ingests a plain text message.
func (s *Service) SendText(ctx context.Context, roomID int64, senderID, content string) (*models.ChatEvent, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > s.cfg.MaxMessageLength {
		return nil, ErrInvalidMessage
	}
	return s.ingest(ctx, roomID, senderID, content, models.TextPayload{}, nil)
}

// SendImage ingests an image message. The content is the stored image URL
// produced by the upload service.
func (s *Service) SendImage(ctx context.Context, roomID int64, senderID, imageURL string) (*models.ChatEvent, error) {
	if imageURL == "" {
		return nil, ErrInvalidMessage
	}
	return s.ingest(ctx, roomID, senderID, imageURL, models.ImagePayload{}, nil)
}

// enrichFunc runs under the room ingest lock after the message row exists,
// letting structured message types persist companion rows and rewrite the
// stored metadata before anything is broadcast. Returning nil metadata keeps
// the metadata written at insert.
type enrichFunc func(ctx context.Context, msg *models.Message) (json.RawMessage, error)

// ingest is the single write path for room messages. Under the room's ingest
// lock it freezes the unread snapshot, assigns the next room sequence via the
// insert, runs the optional enrichment step and publishes the resulting
// event. The snapshot counts active participants minus those online at this
// instant and is never recomputed afterwards.
func (s *Service) ingest(ctx context.Context, roomID int64, senderID, content string,
	payload models.Payload, enrich enrichFunc) (*models.ChatEvent, error) {
	start := time.Now()

	if _, err := s.requireParticipant(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	metadata, err := payload.Marshal()
	if err != nil {
		return nil, err
	}

	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	// Sending is activity; registering it before the snapshot keeps the
	// sender out of their own message's unread count.
	s.presence.RegisterActivity(roomID, senderID)

	total, err := s.db.CountActiveParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	unread := total - s.presence.OnlineCount(roomID)
	if unread < 0 {
		unread = 0
	}

	msg := &models.Message{
		RoomID:      roomID,
		Sender:      senderID,
		Type:        payload.Kind(),
		Content:     content,
		Metadata:    metadata,
		UnreadCount: unread,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	if enrich != nil {
		updated, err := enrich(ctx, msg)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			if err := s.db.UpdateMessageMetadata(ctx, msg.ID, updated); err != nil {
				return nil, err
			}
			msg.Metadata = updated
		}
	}

	if err := s.db.TouchLastMessage(ctx, roomID, msg.CreatedAt); err != nil {
		logging.Warn().Err(err).Int64("room_id", roomID).Msg("Failed to touch room last-message time")
	}

	senderName := s.displayName(ctx, senderID)
	event := &models.ChatEvent{
		MessageID:   msg.ID,
		RoomID:      roomID,
		RoomSeq:     msg.RoomSeq,
		Type:        string(msg.Type),
		Content:     msg.Content,
		SenderID:    senderID,
		SenderName:  senderName,
		UnreadCount: msg.UnreadCount,
		Metadata:    msg.Metadata,
		SentAt:      msg.CreatedAt,
	}
	if err := s.broadcaster.PublishChatEvent(event); err != nil {
		// The message is durable; a failed publish loses only the live
		// notification and clients recover it from history.
		logging.Error().Err(err).Int64("room_id", roomID).Int64("message_id", msg.ID).
			Msg("Failed to publish chat event")
	}

	metrics.MessagesIngested.WithLabelValues(string(msg.Type)).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	if s.notifier != nil {
		s.notifier.NotifyRoomMessage(ctx, roomID, senderName, preview(msg))
	}
	return event, nil
}

// preview builds the short notification text for a message.
func preview(msg *models.Message) string {
	switch msg.Type {
	case models.MessageTypeImage:
		return "[image]"
	case models.MessageTypePoll:
		return "[poll]"
	case models.MessageTypeBill:
		return "[bill]"
	default:
		if len(msg.Content) > 80 {
			return msg.Content[:80]
		}
		return msg.Content
	}
}
