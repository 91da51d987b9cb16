// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"

	"github.com/minglehq/mingle/internal/models"
)

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// SendMessage handles POST /api/v1/rooms/{roomID}/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.chat.SendText(r.Context(), roomID, id.UserID, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// History handles GET /api/v1/rooms/{roomID}/messages. Clients page forward
// with after=<roomSeq>&limit=<n>.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	afterSeq := queryInt(r, "after", 0)
	limit := int(queryInt(r, "limit", 0))

	events, err := h.chat.History(r.Context(), roomID, id.UserID, afterSeq, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// MarkRead handles POST /api/v1/rooms/{roomID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	if err := h.chat.MarkRead(r.Context(), roomID, id.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"roomId": roomID})
}

// maxUploadBytes caps image uploads at 10 MB.
const maxUploadBytes = 10 << 20

// UploadImage handles POST /api/v1/rooms/{roomID}/images as a multipart
// upload. The image goes to the file store first; the message references the
// stored URL.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	if h.files == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUpstreamFailed, "file store not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "image field is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	url, err := h.files.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	event, err := h.chat.SendImage(r.Context(), roomID, id.UserID, url)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

type billShareRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type sendBillRequest struct {
	Title  string             `json:"title" validate:"required,min=1,max=200"`
	Total  int64              `json:"total" validate:"required,gt=0"`
	Shares []billShareRequest `json:"participants" validate:"required,min=1,dive"`
}

// SendBill handles POST /api/v1/rooms/{roomID}/bills.
func (h *Handler) SendBill(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req sendBillRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	bill := models.BillPayload{Title: req.Title, Total: req.Total}
	for _, share := range req.Shares {
		bill.Shares = append(bill.Shares, models.BillShare{UserID: share.UserID, Amount: share.Amount})
	}

	event, err := h.chat.SendBill(r.Context(), roomID, id.UserID, bill)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

type settleBillRequest struct {
	UserID string `json:"userId" validate:"required"`
	Paid   bool   `json:"paid"`
}

// SettleBill handles POST /api/v1/messages/{messageID}/settle.
func (h *Handler) SettleBill(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}
	var req settleBillRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.chat.SettleBillShare(r.Context(), messageID, id.UserID, req.UserID, req.Paid)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}
