// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"

	"github.com/minglehq/mingle/internal/chat"
)

type createPollRequest struct {
	Title          string   `json:"title" validate:"required,min=1,max=200"`
	Options        []string `json:"options" validate:"required,min=2,max=20,dive,required,max=100"`
	Anonymous      bool     `json:"isAnonymous"`
	MultipleChoice bool     `json:"isMultipleChoice"`
}

// CreatePoll handles POST /api/v1/rooms/{roomID}/polls.
func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req createPollRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.chat.CreatePoll(r.Context(), roomID, id.UserID, chat.CreatePollParams{
		Title:          req.Title,
		Options:        req.Options,
		Anonymous:      req.Anonymous,
		MultipleChoice: req.MultipleChoice,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// GetPoll handles GET /api/v1/polls/{voteID}.
func (h *Handler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	voteID, ok := pathID(w, r, "voteID")
	if !ok {
		return
	}
	result, err := h.chat.GetPoll(r.Context(), voteID, id.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type castVoteRequest struct {
	OptionIDs []int64 `json:"optionIds" validate:"max=20"`
}

// CastVote handles POST /api/v1/polls/{voteID}/votes. An empty selection
// withdraws the caller's ballot.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	voteID, ok := pathID(w, r, "voteID")
	if !ok {
		return
	}
	var req castVoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.chat.CastVote(r.Context(), voteID, id.UserID, req.OptionIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
