// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package websocket implements the realtime layer: one connection per
// client, explicit per-room channel subscriptions and fan-out of chat and
// read events delivered by the broadcast bridge.
//
// Channel naming: room events go out on "room.<id>", read receipts on
// "room.<id>.read". A client only receives what it subscribed to, and a
// subscription requires active room membership.
package websocket

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Client actions accepted on the inbound side of a connection.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionSend        = "send"
	ActionRead        = "read"
	ActionPing        = "ping"
)

// Server frame types.
const (
	FrameTypeChat  = "chat"
	FrameTypeRead  = "read"
	FrameTypeAck   = "ack"
	FrameTypeError = "error"
	FrameTypePong  = "pong"
)

// InboundFrame is a client request on the socket.
type InboundFrame struct {
	Action  string `json:"action"`
	RoomID  int64  `json:"roomId,omitempty"`
	Content string `json:"content,omitempty"`
}

// OutboundFrame is a server push on the socket.
type OutboundFrame struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RoomChannel is the channel name for a room's chat events.
func RoomChannel(roomID int64) string {
	return fmt.Sprintf("room.%d", roomID)
}

// ReadChannel is the channel name for a room's read receipts.
func ReadChannel(roomID int64) string {
	return fmt.Sprintf("room.%d.read", roomID)
}

func errorFrame(msg string) OutboundFrame {
	return OutboundFrame{Type: FrameTypeError, Error: msg}
}

func ackFrame(action string, roomID int64) OutboundFrame {
	data, _ := json.Marshal(map[string]interface{}{"action": action, "roomId": roomID})
	return OutboundFrame{Type: FrameTypeAck, Data: json.RawMessage(data)}
}
