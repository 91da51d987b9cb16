// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/auth"
	"github.com/minglehq/mingle/internal/chat"
	"github.com/minglehq/mingle/internal/collab"
	"github.com/minglehq/mingle/internal/validation"
	"github.com/minglehq/mingle/internal/websocket"
)

// Handler carries the dependencies of every HTTP endpoint.
type Handler struct {
	chat  *chat.Service
	files *collab.FileStore
	hub   *websocket.Hub

	// ready is the readiness probe, usually the database ping.
	ready func(ctx context.Context) error
}

// NewHandler wires the endpoint dependencies. files may be nil, in which
// case image upload returns 503; ready may be nil to skip the probe.
func NewHandler(chatSvc *chat.Service, files *collab.FileStore, hub *websocket.Hub,
	ready func(ctx context.Context) error) *Handler {
	return &Handler{chat: chatSvc, files: files, hub: hub, ready: ready}
}

// identity returns the authenticated caller or writes a 401.
func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return nil, false
	}
	return id, true
}

// pathID parses a numeric chi path parameter or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
