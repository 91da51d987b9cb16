// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package collab

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/logging"
)

// Notifier pushes new-message notifications to the platform push service so
// offline participants hear about rooms they are not connected to. Delivery
// is strictly best-effort; a failed push is logged and forgotten.
type Notifier struct {
	baseURL  string
	upstream *upstream
}

func NewNotifier(cfg *config.CollabConfig) *Notifier {
	return &Notifier{
		baseURL:  cfg.NotifierURL,
		upstream: newUpstream("notifier", cfg.Timeout),
	}
}

type roomMessageNotification struct {
	RoomID     int64  `json:"roomId"`
	SenderName string `json:"senderName"`
	Preview    string `json:"preview"`
}

// NotifyRoomMessage fires the push asynchronously. The notification does not
// inherit the request context; message ingest must not wait on the push
// service.
func (n *Notifier) NotifyRoomMessage(_ context.Context, roomID int64, senderName, preview string) {
	payload, err := json.Marshal(roomMessageNotification{
		RoomID:     roomID,
		SenderName: senderName,
		Preview:    preview,
	})
	if err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequest(http.MethodPost, n.baseURL+"/api/v1/notifications/room-message",
			bytes.NewReader(payload))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")

		if _, err := n.upstream.do(ctx, req); err != nil {
			logging.Debug().Err(err).Int64("room_id", roomID).Msg("Push notification failed")
		}
	}()
}
