// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package validation

import (
	"strings"
	"testing"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	// Test that GetValidator returns the same instance
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

// sendRequest mirrors the message ingest request shape.
type sendRequest struct {
	Type    string `validate:"required,msgtype"`
	Content string `validate:"required,max=2000"`
	Limit   int    `validate:"min=1,max=200"`
	Offset  int    `validate:"min=0"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input sendRequest
	}{
		{
			name: "text message",
			input: sendRequest{
				Type:    "TEXT",
				Content: "hello everyone",
				Limit:   50,
				Offset:  0,
			},
		},
		{
			name: "minimum values",
			input: sendRequest{
				Type:    "IMAGE",
				Content: "h",
				Limit:   1,
				Offset:  0,
			},
		},
		{
			name: "maximum values",
			input: sendRequest{
				Type:    "BILL",
				Content: strings.Repeat("a", 2000),
				Limit:   200,
				Offset:  99999,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     sendRequest
		wantField string
		wantTag   string
	}{
		{
			name: "missing content",
			input: sendRequest{
				Type:  "TEXT",
				Limit: 50,
			},
			wantField: "Content",
			wantTag:   "required",
		},
		{
			name: "content too long",
			input: sendRequest{
				Type:    "TEXT",
				Content: strings.Repeat("a", 2001),
				Limit:   50,
			},
			wantField: "Content",
			wantTag:   "max",
		},
		{
			name: "unknown message type",
			input: sendRequest{
				Type:    "STICKER",
				Content: "hi",
				Limit:   50,
			},
			wantField: "Type",
			wantTag:   "msgtype",
		},
		{
			name: "limit too low",
			input: sendRequest{
				Type:    "TEXT",
				Content: "hi",
				Limit:   0,
			},
			wantField: "Limit",
			wantTag:   "min",
		},
		{
			name: "negative offset",
			input: sendRequest{
				Type:    "TEXT",
				Content: "hi",
				Limit:   50,
				Offset:  -1,
			},
			wantField: "Offset",
			wantTag:   "min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			errs := err.Errors()
			if len(errs) == 0 {
				t.Fatal("ValidationErrors should contain at least one error")
			}

			found := false
			for _, e := range errs {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}

			if !found {
				t.Errorf("Expected error on field %s with tag %s, got: %v", tt.wantField, tt.wantTag, errs)
			}
		})
	}
}

// ===================================================================================================
// ToAPIError Tests
// ===================================================================================================

func TestToAPIError_SingleError(t *testing.T) {
	input := sendRequest{
		Type:  "TEXT",
		Limit: 100,
	}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", apiErr.Code)
	}

	if apiErr.Message == "" {
		t.Error("Expected non-empty message")
	}

	// Should contain field name in details
	if apiErr.Details == nil {
		t.Error("Expected details to be set")
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	input := sendRequest{
		Type:   "STICKER",
		Limit:  0,
		Offset: -1,
	}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", apiErr.Code)
	}

	// Details should contain field information
	if apiErr.Details == nil {
		t.Error("Expected details to contain field information")
	}

	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("Expected details to contain 'fields' key")
	}
}

// ===================================================================================================
// Custom Validator Tests - Message Type
// ===================================================================================================

type typeStruct struct {
	Type string `validate:"omitempty,msgtype"`
}

func TestMsgtypeValidation_Valid(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
	}{
		{"empty", ""},
		{"text", "TEXT"},
		{"image", "IMAGE"},
		{"poll", "POLL"},
		{"bill", "BILL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := typeStruct{Type: tt.msgType}
			err := ValidateStruct(&input)
			if err != nil {
				t.Errorf("ValidateStruct() returned unexpected error for type %q: %v", tt.msgType, err)
			}
		})
	}
}

func TestMsgtypeValidation_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
	}{
		{"lowercase", "text"},
		{"unknown", "STICKER"},
		{"partial match", "TEXTX"},
		{"event type not ingestable", "VOTE_UPDATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := typeStruct{Type: tt.msgType}
			err := ValidateStruct(&input)
			if err == nil {
				t.Errorf("ValidateStruct() should have returned error for type %q", tt.msgType)
			}
		})
	}
}

// ===================================================================================================
// UUID Validation Tests
// ===================================================================================================

type idStruct struct {
	RoomID string `validate:"omitempty,uuid4"`
}

func TestUUIDValidation(t *testing.T) {
	valid := idStruct{RoomID: "3b241101-e2bb-4255-8caf-4136c566a962"}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("ValidateStruct() returned unexpected error: %v", err)
	}

	invalid := idStruct{RoomID: "room-42"}
	if err := ValidateStruct(&invalid); err == nil {
		t.Error("ValidateStruct() should have returned error for non-UUID room id")
	}
}

// ===================================================================================================
// Oneof Validation Tests
// ===================================================================================================

type roleStruct struct {
	Role string `validate:"omitempty,oneof=ORGANIZER MEMBER"`
}

func TestOneofValidation_Valid(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{"empty", ""},
		{"organizer", "ORGANIZER"},
		{"member", "MEMBER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := roleStruct{Role: tt.role}
			err := ValidateStruct(&input)
			if err != nil {
				t.Errorf("ValidateStruct() returned unexpected error for role %q: %v", tt.role, err)
			}
		})
	}
}

func TestOneofValidation_Invalid(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{"invalid role", "ADMIN"},
		{"case sensitive", "organizer"},
		{"partial match", "MEMBERX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := roleStruct{Role: tt.role}
			err := ValidateStruct(&input)
			if err == nil {
				t.Errorf("ValidateStruct() should have returned error for role %q", tt.role)
			}
		})
	}
}

// ===================================================================================================
// WithRequiredStructEnabled Tests
// ===================================================================================================

type pollRequest struct {
	Title   string       `validate:"required,max=100"`
	Options []pollOption `validate:"required,min=2,dive"`
}

type pollOption struct {
	Content string `validate:"required,max=200"`
}

func TestNestedStructValidation(t *testing.T) {
	// Valid poll with two options
	valid := pollRequest{
		Title: "Where should we meet?",
		Options: []pollOption{
			{Content: "Coffee shop"},
			{Content: "Park"},
		},
	}

	err := ValidateStruct(&valid)
	if err != nil {
		t.Errorf("ValidateStruct() returned unexpected error for valid poll: %v", err)
	}

	// Invalid - one option has empty content
	invalid := pollRequest{
		Title: "Where should we meet?",
		Options: []pollOption{
			{Content: "Coffee shop"},
			{Content: ""},
		},
	}

	err = ValidateStruct(&invalid)
	if err == nil {
		t.Error("ValidateStruct() should have returned error for empty option content")
	}

	// Invalid - fewer than two options
	tooFew := pollRequest{
		Title:   "Where should we meet?",
		Options: []pollOption{{Content: "Coffee shop"}},
	}

	err = ValidateStruct(&tooFew)
	if err == nil {
		t.Error("ValidateStruct() should have returned error for single-option poll")
	}
}

// ===================================================================================================
// Error Message Translation Tests
// ===================================================================================================

func TestErrorMessages(t *testing.T) {
	input := sendRequest{
		Type:  "TEXT",
		Limit: 0,
	}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	// Error message should be human-readable
	msg := err.Error()
	if msg == "" {
		t.Error("Error message should not be empty")
	}

	// Should contain field name
	if !strings.Contains(msg, "Content") && !strings.Contains(msg, "Limit") {
		t.Errorf("Error message should reference failed field: %s", msg)
	}
}
