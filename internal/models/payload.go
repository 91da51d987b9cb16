// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// MessageType discriminates the payload carried by a message.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypePoll  MessageType = "POLL"
	MessageTypeBill  MessageType = "BILL"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypePoll, MessageTypeBill:
		return true
	}
	return false
}

// Event types broadcast on room channels alongside messages.
const (
	EventTypeVoteUpdate = "VOTE_UPDATE"
	EventTypeBillUpdate = "BILL_UPDATE"
	EventTypeRead       = "READ"
)

// Payload is the typed counterpart of a message's metadata column. Internally
// every structured message carries one of the concrete variants below; the
// untyped JSON representation exists only at the storage and wire boundaries.
type Payload interface {
	Kind() MessageType
	// Marshal produces the wire/storage form, or nil for variants that
	// carry no metadata.
	Marshal() (json.RawMessage, error)
}

// TextPayload is a plain text message. It carries no metadata.
type TextPayload struct{}

func (TextPayload) Kind() MessageType                 { return MessageTypeText }
func (TextPayload) Marshal() (json.RawMessage, error) { return nil, nil }

// ImagePayload is an uploaded image; the content URL lives in the message
// content field, so no metadata is needed.
type ImagePayload struct{}

func (ImagePayload) Kind() MessageType                 { return MessageTypeImage }
func (ImagePayload) Marshal() (json.RawMessage, error) { return nil, nil }

// OptionTally is one poll option's externally visible state. VoterIDs is nil
// for anonymous polls; the JSON field is emitted as null so clients can
// distinguish "hidden" from "empty".
type OptionTally struct {
	OptionID  int64    `json:"optionId"`
	Content   string   `json:"content"`
	VoteCount int      `json:"voteCount"`
	VoterIDs  []string `json:"voterIds"`
}

// PollPayload is the tally snapshot embedded in a POLL message and in
// VOTE_UPDATE events.
type PollPayload struct {
	VoteID         int64         `json:"voteId"`
	Title          string        `json:"title"`
	Anonymous      bool          `json:"isAnonymous"`
	MultipleChoice bool          `json:"isMultipleChoice"`
	Options        []OptionTally `json:"options"`
}

func (PollPayload) Kind() MessageType { return MessageTypePoll }

func (p PollPayload) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal poll payload: %w", err)
	}
	return data, nil
}

// BillShare is one participant's line in a bill split.
type BillShare struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	IsPaid bool   `json:"isPaid"`
}

// BillPayload is the structured content of a BILL (bill-split) message.
// MessageID is filled in after the owning message is persisted so clients
// can address paid-status toggles at it.
type BillPayload struct {
	MessageID int64       `json:"messageId,omitempty"`
	Title     string      `json:"title"`
	Total     int64       `json:"total"`
	Shares    []BillShare `json:"participants"`
}

func (BillPayload) Kind() MessageType { return MessageTypeBill }

func (p BillPayload) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal bill payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses stored metadata back into its typed variant. TEXT and
// IMAGE messages return their empty variants regardless of raw.
func DecodePayload(t MessageType, raw json.RawMessage) (Payload, error) {
	switch t {
	case MessageTypeText:
		return TextPayload{}, nil
	case MessageTypeImage:
		return ImagePayload{}, nil
	case MessageTypePoll:
		var p PollPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode poll payload: %w", err)
		}
		return p, nil
	case MessageTypeBill:
		var p BillPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode bill payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", t)
	}
}
