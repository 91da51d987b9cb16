// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin enforcement happens in the CORS layer; the upgrade itself
	// is authenticated by the token middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocket handles GET /api/v1/ws, upgrading the connection and handing it
// to the hub. Authentication happened in middleware; browsers pass the token
// as a query parameter since they cannot set headers on WebSocket dials.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Str("user_id", id.UserID).Msg("WebSocket upgrade failed")
		return
	}

	websocket.NewClient(h.hub, conn, id.UserID).Start()
}
