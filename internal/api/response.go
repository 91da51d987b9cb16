// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

// Package api exposes the chat engine over HTTP: room management, message
// ingest, history, polls, bill splits, uploads and the WebSocket entry
// point. Every response uses the models.APIResponse envelope.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/chat"
	"github.com/minglehq/mingle/internal/collab"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/models"
)

// Error codes for API responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUpstreamFailed   = "EXTERNAL_SERVICE_FAILED"
	ErrCodeRoomFull         = "ROOM_FULL"
	ErrCodeNotParticipant   = "NOT_PARTICIPANT"
	ErrCodeInvalidSelection = "INVALID_SELECTION"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message, Details: details},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}

// respondServiceError maps chat engine and collaborator errors onto HTTP
// statuses and stable codes. Anything unrecognized is a 500 with a generic
// message; internals never leak to clients.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrVoteNotFound),
		errors.Is(err, chat.ErrInviteNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, chat.ErrNotParticipant):
		respondError(w, http.StatusForbidden, ErrCodeNotParticipant, err.Error())
	case errors.Is(err, chat.ErrForbidden), errors.Is(err, collab.ErrJoinDenied):
		respondError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, chat.ErrRoomFull):
		respondError(w, http.StatusConflict, ErrCodeRoomFull, err.Error())
	case errors.Is(err, chat.ErrInvalidVoteSelection):
		respondError(w, http.StatusBadRequest, ErrCodeInvalidSelection, err.Error())
	case errors.Is(err, chat.ErrInvalidMessage):
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, collab.ErrUploadFailure), errors.Is(err, collab.ErrUnavailable):
		respondError(w, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	default:
		logging.Error().Err(err).Msg("Unhandled service error")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
