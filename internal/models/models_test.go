// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestProfileDisplayName(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"nickname wins", Profile{UserID: "u1", Username: "alice", Nickname: "Ali"}, "Ali"},
		{"username fallback", Profile{UserID: "u1", Username: "alice"}, "alice"},
		{"identity fallback", Profile{UserID: "u1"}, "u1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.profile.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessageTypeValid(t *testing.T) {
	for _, valid := range []MessageType{MessageTypeText, MessageTypeImage, MessageTypePoll, MessageTypeBill} {
		if !valid.Valid() {
			t.Errorf("%s should be valid", valid)
		}
	}
	if MessageType("TALK").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestPollPayloadRoundTrip(t *testing.T) {
	p := PollPayload{
		VoteID:         7,
		Title:          "Lunch?",
		Anonymous:      false,
		MultipleChoice: false,
		Options: []OptionTally{
			{OptionID: 1, Content: "Pizza", VoteCount: 1, VoterIDs: []string{"bob"}},
			{OptionID: 2, Content: "Chicken", VoteCount: 0, VoterIDs: []string{}},
		},
	}

	raw, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := DecodePayload(MessageTypePoll, raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	got, ok := decoded.(PollPayload)
	if !ok {
		t.Fatalf("decoded %T, want PollPayload", decoded)
	}
	if got.VoteID != 7 || len(got.Options) != 2 || got.Options[0].VoterIDs[0] != "bob" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestAnonymousTallyEmitsNullVoterIDs(t *testing.T) {
	p := PollPayload{
		VoteID:    3,
		Title:     "Favorite color?",
		Anonymous: true,
		Options: []OptionTally{
			{OptionID: 1, Content: "Red", VoteCount: 1, VoterIDs: nil},
		},
	}
	raw, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"voterIds":null`) {
		t.Errorf("anonymous tally should serialize voterIds as null: %s", raw)
	}
}

func TestTextAndImagePayloadsCarryNoMetadata(t *testing.T) {
	for _, p := range []Payload{TextPayload{}, ImagePayload{}} {
		raw, err := p.Marshal()
		if err != nil {
			t.Fatalf("%s Marshal: %v", p.Kind(), err)
		}
		if raw != nil {
			t.Errorf("%s should carry no metadata, got %s", p.Kind(), raw)
		}
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	if _, err := DecodePayload(MessageType("NOPE"), json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestBillPayloadWireShape(t *testing.T) {
	p := BillPayload{
		MessageID: 42,
		Title:     "Dinner",
		Total:     60000,
		Shares: []BillShare{
			{UserID: "a", Amount: 20000, IsPaid: true},
			{UserID: "b", Amount: 20000},
		},
	}
	raw, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := m["participants"]; !ok {
		t.Errorf("bill shares must serialize under participants: %s", raw)
	}
}
