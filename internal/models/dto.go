// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ChatEvent is the flat message DTO delivered on room.<id> channels and from
// the history endpoint. It carries everything a client needs to render the
// message without resolving entity references: no Room or Participant objects
// ever cross the wire.
type ChatEvent struct {
	MessageID   int64           `json:"messageId"`
	RoomID      int64           `json:"roomId"`
	RoomSeq     int64           `json:"roomSeq,omitempty"`
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	SenderID    string          `json:"senderId"`
	SenderName  string          `json:"senderNickname"`
	UnreadCount int             `json:"unreadCount"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	SentAt      time.Time       `json:"sentAt"`
}

// ReadEvent is broadcast on room.<id>.read channels when a participant marks
// the room read.
type ReadEvent struct {
	RoomID    int64     `json:"roomId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomSummary is the room list DTO, including a last-message preview.
type RoomSummary struct {
	RoomID           int64     `json:"roomId"`
	Name             string    `json:"roomName"`
	ParticipantCount int       `json:"participantCount"`
	MaxParticipants  int       `json:"maxParticipants"`
	Category         string    `json:"category,omitempty"`
	Notice           string    `json:"notice,omitempty"`
	LastMessage      string    `json:"lastMessage,omitempty"`
	LastMessageTime  time.Time `json:"lastMessageTime"`
}

// ParticipantInfo is the participant list DTO with directory fields resolved.
type ParticipantInfo struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// VoteResult is the poll DTO returned from create/cast operations. Options
// follow the same anonymity rule as broadcasts: VoterIDs is null when the
// vote is anonymous.
type VoteResult struct {
	VoteID         int64         `json:"voteId"`
	Title          string        `json:"title"`
	Anonymous      bool          `json:"isAnonymous"`
	MultipleChoice bool          `json:"isMultipleChoice"`
	CreatorID      string        `json:"creatorId"`
	Options        []OptionTally `json:"options"`
}
