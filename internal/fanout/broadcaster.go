// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// Broadcaster publishes chat and read events onto the transport.
//
// Publishing is fire-and-forget from the sender's perspective: the message
// is already persisted before publish, so a transport failure loses only
// the live notification, never the message. Failures are logged and
// counted, not retried.
type Broadcaster struct {
	publisher message.Publisher
}

// NewBroadcaster wraps a transport publisher.
func NewBroadcaster(publisher message.Publisher) *Broadcaster {
	return &Broadcaster{publisher: publisher}
}

// PublishChatEvent fans a message DTO out to the room's subscribers.
func (b *Broadcaster) PublishChatEvent(event *models.ChatEvent) error {
	data, err := EncodeChatEvent(event)
	if err != nil {
		metrics.RecordBroadcast(event.Type, err)
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("room_id", strconv.FormatInt(event.RoomID, 10))
	msg.Metadata.Set("event_type", event.Type)

	err = b.publisher.Publish(TopicChatEvents, msg)
	metrics.RecordBroadcast(event.Type, err)
	if err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

// PublishReadEvent fans a read receipt out to the room's subscribers.
func (b *Broadcaster) PublishReadEvent(event *models.ReadEvent) error {
	data, err := EncodeReadEvent(event)
	if err != nil {
		metrics.RecordBroadcast(models.EventTypeRead, err)
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("room_id", strconv.FormatInt(event.RoomID, 10))
	msg.Metadata.Set("event_type", models.EventTypeRead)

	err = b.publisher.Publish(TopicReadEvents, msg)
	metrics.RecordBroadcast(models.EventTypeRead, err)
	if err != nil {
		return fmt.Errorf("publish read event: %w", err)
	}
	return nil
}
