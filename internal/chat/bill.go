// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/models"
)

// SendBill ingests a BILL (bill-split) message. Shares are taken as given;
// the transport layer validates amounts. The persisted metadata carries the
// message's own ID so clients can address paid-status toggles at it.
func (s *Service) SendBill(ctx context.Context, roomID int64, senderID string, bill models.BillPayload) (*models.ChatEvent, error) {
	title := strings.TrimSpace(bill.Title)
	if title == "" || bill.Total <= 0 || len(bill.Shares) == 0 {
		return nil, ErrInvalidMessage
	}
	bill.Title = title
	bill.MessageID = 0

	enrich := func(ctx context.Context, msg *models.Message) (json.RawMessage, error) {
		bill.MessageID = msg.ID
		return bill.Marshal()
	}
	return s.ingest(ctx, roomID, senderID, title, bill, enrich)
}

// SettleBillShare toggles the paid flag on one share of a BILL message and
// broadcasts the updated split. The bill's sender may settle any share;
// everyone else may only settle their own.
func (s *Service) SettleBillShare(ctx context.Context, messageID int64, callerID, shareUserID string, paid bool) (*models.ChatEvent, error) {
	msg, err := s.db.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.Type != models.MessageTypeBill {
		return nil, ErrMessageNotFound
	}

	if _, err := s.requireParticipant(ctx, msg.RoomID, callerID); err != nil {
		return nil, err
	}
	if callerID != msg.Sender && callerID != shareUserID {
		return nil, ErrForbidden
	}

	// Share toggles on the same bill race each other; the room ingest lock
	// is wide but settles are rare enough that it does not matter.
	mu := s.roomLock(msg.RoomID)
	mu.Lock()
	defer mu.Unlock()

	msg, err = s.db.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	payload, err := models.DecodePayload(msg.Type, msg.Metadata)
	if err != nil {
		return nil, err
	}
	bill := payload.(models.BillPayload)

	found := false
	for i := range bill.Shares {
		if bill.Shares[i].UserID == shareUserID {
			bill.Shares[i].IsPaid = paid
			found = true
			break
		}
	}
	if !found {
		return nil, ErrInvalidMessage
	}

	metadata, err := bill.Marshal()
	if err != nil {
		return nil, err
	}
	if err := s.db.UpdateMessageMetadata(ctx, messageID, metadata); err != nil {
		return nil, err
	}

	s.presence.RegisterActivity(msg.RoomID, callerID)

	event := &models.ChatEvent{
		MessageID:  messageID,
		RoomID:     msg.RoomID,
		Type:       models.EventTypeBillUpdate,
		SenderID:   callerID,
		SenderName: s.displayName(ctx, callerID),
		Metadata:   metadata,
		SentAt:     time.Now().UTC(),
	}
	if err := s.broadcaster.PublishChatEvent(event); err != nil {
		logging.Warn().Err(err).Int64("message_id", messageID).Msg("Failed to publish bill update")
	}
	return event, nil
}
