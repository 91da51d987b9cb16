// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minglehq/mingle/internal/auth"
	"github.com/minglehq/mingle/internal/chat"
	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/fanout"
	"github.com/minglehq/mingle/internal/models"
	"github.com/minglehq/mingle/internal/presence"
	"github.com/minglehq/mingle/internal/websocket"
)

type apiRig struct {
	server   *httptest.Server
	verifier *auth.Verifier
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "api.duckdb"),
		MaxMemory: "256MB",
		Threads:   2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ps, err := fanout.New(&config.NATSConfig{Enabled: false}, 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	tracker := presence.NewTracker(time.Minute, time.Minute)
	svc := chat.NewService(db, tracker, fanout.NewBroadcaster(ps.Publisher), nil, nil, nil,
		&config.ChatConfig{
			HistoryPageSize:    20,
			MaxHistoryPageSize: 100,
			MaxMessageLength:   2000,
			MaxPollOptions:     20,
			MaxRoomCapacity:    50,
		})

	hub := websocket.NewHub(svc, tracker, 64)

	verifier, err := auth.NewVerifier(&config.SecurityConfig{
		JWTSecret: "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)

	handler := NewHandler(svc, nil, hub, db.Ping)
	router := NewRouter(handler, verifier, &config.SecurityConfig{
		RateLimitDisabled: true,
		CORSOrigins:       []string{"*"},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiRig{server: server, verifier: verifier}
}

func (rig *apiRig) token(t *testing.T, userID string) string {
	t.Helper()

	token, err := rig.verifier.Issue(userID, userID, time.Hour)
	require.NoError(t, err)
	return token
}

// call performs an authenticated request and decodes the envelope.
func (rig *apiRig) call(t *testing.T, method, path, userID string, body interface{}) (int, models.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, rig.server.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+rig.token(t, userID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := rig.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var envelope models.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func decodeData(t *testing.T, envelope models.APIResponse, dst interface{}) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func (rig *apiRig) createRoom(t *testing.T, userID, name string) models.Room {
	t.Helper()

	status, envelope := rig.call(t, http.MethodPost, "/api/v1/rooms", userID,
		map[string]interface{}{"name": name})
	require.Equal(t, http.StatusCreated, status)
	var room models.Room
	decodeData(t, envelope, &room)
	return room
}

func TestRequiresAuthentication(t *testing.T) {
	rig := newAPIRig(t)

	status, envelope := rig.call(t, http.MethodGet, "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "error", envelope.Status)
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	rig := newAPIRig(t)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		status, envelope := rig.call(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "success", envelope.Status, path)
	}
}

func TestCreateAndListRooms(t *testing.T) {
	rig := newAPIRig(t)

	room := rig.createRoom(t, "alice", "Hiking Crew")
	assert.Equal(t, "Hiking Crew", room.Name)
	assert.NotZero(t, room.ID)

	status, envelope := rig.call(t, http.MethodGet, "/api/v1/rooms", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	var rooms []models.RoomSummary
	decodeData(t, envelope, &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].RoomID)
}

func TestCreateRoomValidation(t *testing.T) {
	rig := newAPIRig(t)

	status, envelope := rig.call(t, http.MethodPost, "/api/v1/rooms", "alice",
		map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestMessageRoundTrip(t *testing.T) {
	rig := newAPIRig(t)
	room := rig.createRoom(t, "alice", "General")
	base := fmt.Sprintf("/api/v1/rooms/%d", room.ID)

	status, _ := rig.call(t, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/join", room.ID), "bob", nil)
	require.Equal(t, http.StatusOK, status)

	status, envelope := rig.call(t, http.MethodPost, base+"/messages", "bob",
		map[string]interface{}{"content": "hello room"})
	require.Equal(t, http.StatusCreated, status)
	var event models.ChatEvent
	decodeData(t, envelope, &event)
	assert.Equal(t, "bob", event.SenderID)
	assert.Equal(t, 1, event.UnreadCount) // alice is offline

	status, envelope = rig.call(t, http.MethodGet, base+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	var history []models.ChatEvent
	decodeData(t, envelope, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "hello room", history[0].Content)

	status, _ = rig.call(t, http.MethodPost, base+"/read", "alice", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHistoryForbiddenForOutsiders(t *testing.T) {
	rig := newAPIRig(t)
	room := rig.createRoom(t, "alice", "Private")

	status, envelope := rig.call(t, http.MethodGet,
		fmt.Sprintf("/api/v1/rooms/%d/messages", room.ID), "mallory", nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, ErrCodeNotParticipant, envelope.Error.Code)
}

func TestUnknownRoomIs404(t *testing.T) {
	rig := newAPIRig(t)

	status, envelope := rig.call(t, http.MethodGet, "/api/v1/rooms/424242", "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ErrCodeNotFound, envelope.Error.Code)
}

func TestPollLifecycleOverHTTP(t *testing.T) {
	rig := newAPIRig(t)
	room := rig.createRoom(t, "alice", "Planning")

	status, _ := rig.call(t, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/join", room.ID), "bob", nil)
	require.Equal(t, http.StatusOK, status)

	status, envelope := rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/polls", room.ID), "alice",
		map[string]interface{}{
			"title":   "Which trail?",
			"options": []string{"North", "South"},
		})
	require.Equal(t, http.StatusCreated, status)
	var poll models.VoteResult
	decodeData(t, envelope, &poll)
	require.Len(t, poll.Options, 2)

	status, envelope = rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/polls/%d/votes", poll.VoteID), "bob",
		map[string]interface{}{"optionIds": []int64{poll.Options[1].OptionID}})
	require.Equal(t, http.StatusOK, status)
	var result models.VoteResult
	decodeData(t, envelope, &result)
	assert.Equal(t, 1, result.Options[1].VoteCount)

	// Single-choice poll rejects a multi-selection.
	status, envelope = rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/polls/%d/votes", poll.VoteID), "bob",
		map[string]interface{}{"optionIds": []int64{poll.Options[0].OptionID, poll.Options[1].OptionID}})
	assert.Equal(t, http.StatusBadRequest, status)
	// Pin the wire value, not the constant, so the published code is stable.
	assert.Equal(t, "INVALID_SELECTION", envelope.Error.Code)
}

func TestBillSettleOverHTTP(t *testing.T) {
	rig := newAPIRig(t)
	room := rig.createRoom(t, "alice", "Dinner Club")

	status, _ := rig.call(t, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/join", room.ID), "bob", nil)
	require.Equal(t, http.StatusOK, status)

	status, envelope := rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/bills", room.ID), "alice",
		map[string]interface{}{
			"title": "Pizza night",
			"total": 4800,
			"participants": []map[string]interface{}{
				{"userId": "alice", "amount": 2400},
				{"userId": "bob", "amount": 2400},
			},
		})
	require.Equal(t, http.StatusCreated, status)
	var event models.ChatEvent
	decodeData(t, envelope, &event)

	status, envelope = rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/messages/%d/settle", event.MessageID), "bob",
		map[string]interface{}{"userId": "bob", "paid": true})
	require.Equal(t, http.StatusOK, status)

	var updated models.ChatEvent
	decodeData(t, envelope, &updated)
	var bill models.BillPayload
	require.NoError(t, json.Unmarshal(updated.Metadata, &bill))
	assert.True(t, bill.Shares[1].IsPaid)
}

func TestInviteFlowOverHTTP(t *testing.T) {
	rig := newAPIRig(t)
	room := rig.createRoom(t, "alice", "Book Club")

	status, envelope := rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/invites", room.ID), "alice",
		map[string]interface{}{"userId": "carol"})
	require.Equal(t, http.StatusCreated, status)
	var inv models.Invitation
	decodeData(t, envelope, &inv)

	status, envelope = rig.call(t, http.MethodGet, "/api/v1/invites", "carol", nil)
	require.Equal(t, http.StatusOK, status)
	var pending []models.Invitation
	decodeData(t, envelope, &pending)
	require.Len(t, pending, 1)

	status, _ = rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/invites/%d/accept", inv.ID), "carol", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = rig.call(t, http.MethodPost,
		fmt.Sprintf("/api/v1/rooms/%d/messages", room.ID), "carol",
		map[string]interface{}{"content": "what are we reading?"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestInvalidRoomIDPath(t *testing.T) {
	rig := newAPIRig(t)

	status, envelope := rig.call(t, http.MethodGet, "/api/v1/rooms/abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeBadRequest, envelope.Error.Code)
}
