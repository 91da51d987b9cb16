// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package fanout

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/models"
)

// Internal topics. Room routing happens at the hub using the RoomID each
// event carries, not through per-room topics; a fixed topic set keeps both
// the in-process and the JetStream transport free of unbounded topic churn.
const (
	TopicChatEvents = "chat.events"
	TopicReadEvents = "chat.reads"
)

// EncodeChatEvent serializes a chat event for transport.
func EncodeChatEvent(event *models.ChatEvent) ([]byte, error) {
	if event.RoomID == 0 {
		return nil, fmt.Errorf("chat event missing room id")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal chat event: %w", err)
	}
	return data, nil
}

// DecodeChatEvent deserializes a transported chat event.
func DecodeChatEvent(data []byte) (*models.ChatEvent, error) {
	var event models.ChatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal chat event: %w", err)
	}
	return &event, nil
}

// EncodeReadEvent serializes a read receipt for transport.
func EncodeReadEvent(event *models.ReadEvent) ([]byte, error) {
	if event.RoomID == 0 {
		return nil, fmt.Errorf("read event missing room id")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal read event: %w", err)
	}
	return data, nil
}

// DecodeReadEvent deserializes a transported read receipt.
func DecodeReadEvent(data []byte) (*models.ReadEvent, error) {
	var event models.ReadEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal read event: %w", err)
	}
	return &event, nil
}
