// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package models defines the chat domain entities and the flat DTOs used at
// the REST and WebSocket boundaries.
//
// Entity ownership is deliberately one-directional: a Room owns its
// Participants and Messages, while Message and Participant hold only integer
// and string back-references. Nothing here serializes an owning reference
// outward; clients always receive the flat DTOs built by the history and
// fan-out layers.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Role is a participant's role within a room.
type Role string

const (
	RoleOrganizer Role = "ORGANIZER"
	RoleMember    Role = "MEMBER"
)

// Room is a named channel grouping participants and an ordered message log.
type Room struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	IsActive        bool      `json:"isActive"`
	MaxParticipants int       `json:"maxParticipants"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description,omitempty"`
	LocationName    string    `json:"locationName,omitempty"`
	Notice          string    `json:"notice,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Participant is a (room, identity) membership record. Membership is soft:
// leaving a room updates the read marker but never deletes the row.
type Participant struct {
	RoomID     int64     `json:"roomId"`
	UserID     string    `json:"userId"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastReadAt time.Time `json:"lastReadAt"`
}

// Message is one entry in a room's ordered log.
//
// RoomSeq is assigned by the message store under the ingest lock and is
// strictly increasing within a room. UnreadCount is a snapshot of
// participants not present at send time; it is written once and never
// recomputed.
type Message struct {
	ID          int64           `json:"id"`
	RoomID      int64           `json:"roomId"`
	RoomSeq     int64           `json:"roomSeq"`
	Sender      string          `json:"sender"`
	Type        MessageType     `json:"type"`
	Content     string          `json:"content"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	UnreadCount int             `json:"unreadCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Vote is an interactive poll embedded in a POLL-typed message.
type Vote struct {
	ID             int64        `json:"id"`
	RoomID         int64        `json:"roomId"`
	MessageID      int64        `json:"messageId"`
	Title          string       `json:"title"`
	Anonymous      bool         `json:"isAnonymous"`
	MultipleChoice bool         `json:"isMultipleChoice"`
	Creator        string       `json:"creator"`
	CreatedAt      time.Time    `json:"createdAt"`
	Options        []VoteOption `json:"options"`
}

// VoteOption holds one choice and its voter set. The voter set is the
// authoritative tally source; the POLL message's metadata is a derived
// projection that is rewritten after every cast.
type VoteOption struct {
	ID       int64    `json:"id"`
	VoteID   int64    `json:"voteId"`
	Position int      `json:"position"`
	Content  string   `json:"content"`
	Voters   []string `json:"voters,omitempty"`
}

// InviteStatus tracks the lifecycle of a room invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteDeclined InviteStatus = "DECLINED"
)

// Invitation is a pending offer of room membership. Accepting one adds the
// invitee as a MEMBER participant.
type Invitation struct {
	ID          int64        `json:"id"`
	RoomID      int64        `json:"roomId"`
	Inviter     string       `json:"inviter"`
	Invitee     string       `json:"invitee"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	RespondedAt *time.Time   `json:"respondedAt,omitempty"`
}

// Profile is a directory lookup result for an identity.
type Profile struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// DisplayName returns the nickname when set, falling back to the username,
// then to the raw identity.
func (p Profile) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}
