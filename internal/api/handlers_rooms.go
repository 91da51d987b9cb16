// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"

	"github.com/minglehq/mingle/internal/chat"
)

type createRoomRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	MaxParticipants int    `json:"maxParticipants" validate:"omitempty,gte=2,lte=500"`
	Category        string `json:"category" validate:"omitempty,max=50"`
	Description     string `json:"description" validate:"omitempty,max=1000"`
	LocationName    string `json:"locationName" validate:"omitempty,max=200"`
}

// CreateRoom handles POST /api/v1/rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	room, err := h.chat.CreateRoom(r.Context(), id.UserID, chat.CreateRoomParams{
		Name:            req.Name,
		MaxParticipants: req.MaxParticipants,
		Category:        req.Category,
		Description:     req.Description,
		LocationName:    req.LocationName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, room)
}

// ListRooms handles GET /api/v1/rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit := int(queryInt(r, "limit", 50))
	offset := int(queryInt(r, "offset", 0))

	rooms, err := h.chat.ListRooms(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rooms)
}

// MyRooms handles GET /api/v1/rooms/mine.
func (h *Handler) MyRooms(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rooms, err := h.chat.MyRooms(r.Context(), id.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rooms)
}

// GetRoom handles GET /api/v1/rooms/{roomID}.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	room, err := h.chat.GetRoom(r.Context(), roomID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}

// JoinRoom handles POST /api/v1/rooms/{roomID}/join.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	if err := h.chat.JoinRoom(r.Context(), roomID, id.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"roomId": roomID})
}

// LeaveRoom handles POST /api/v1/rooms/{roomID}/leave.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	if err := h.chat.LeaveRoom(r.Context(), roomID, id.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"roomId": roomID})
}

// Participants handles GET /api/v1/rooms/{roomID}/participants.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	participants, err := h.chat.Participants(r.Context(), roomID, id.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, participants)
}

type noticeRequest struct {
	Notice string `json:"notice" validate:"max=2000"`
}

// SetNotice handles PUT /api/v1/rooms/{roomID}/notice.
func (h *Handler) SetNotice(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req noticeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.chat.SetNotice(r.Context(), roomID, id.UserID, req.Notice); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"notice": req.Notice})
}

type inviteRequest struct {
	UserID string `json:"userId" validate:"required,min=1,max=100"`
}

// Invite handles POST /api/v1/rooms/{roomID}/invites.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req inviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.chat.Invite(r.Context(), roomID, id.UserID, req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// PendingInvites handles GET /api/v1/invites.
func (h *Handler) PendingInvites(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	invites, err := h.chat.PendingInvites(r.Context(), id.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invites)
}

// AcceptInvite handles POST /api/v1/invites/{inviteID}/accept.
func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	h.resolveInvite(w, r, true)
}

// DeclineInvite handles POST /api/v1/invites/{inviteID}/decline.
func (h *Handler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	h.resolveInvite(w, r, false)
}

func (h *Handler) resolveInvite(w http.ResponseWriter, r *http.Request, accept bool) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	inviteID, ok := pathID(w, r, "inviteID")
	if !ok {
		return
	}

	var err error
	if accept {
		err = h.chat.AcceptInvite(r.Context(), inviteID, id.UserID)
	} else {
		err = h.chat.DeclineInvite(r.Context(), inviteID, id.UserID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"inviteId": inviteID})
}
