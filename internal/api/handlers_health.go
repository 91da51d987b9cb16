// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"
	"time"
)

// HealthLive handles GET /api/v1/health/live. Always 200 while the process
// serves requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready, checking the database.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ready",
		"connections": h.hub.ClientCount(),
		"checkedAt":   time.Now().UTC(),
	})
}
