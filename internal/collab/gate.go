// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/logging"
)

// ErrJoinDenied is returned when the membership service vetoes a join.
var ErrJoinDenied = errors.New("join denied by membership service")

// Gate checks room joins against the meetup membership service: only users
// enrolled in the meetup behind a room may join its chat.
//
// The gate fails open. Membership was already checked when the user signed
// up for the meetup; refusing chat access because an auxiliary service is
// down would be the worse failure.
type Gate struct {
	baseURL  string
	upstream *upstream
}

func NewGate(cfg *config.CollabConfig) *Gate {
	return &Gate{
		baseURL:  cfg.MembershipURL,
		upstream: newUpstream("membership", cfg.Timeout),
	}
}

// CanJoin returns ErrJoinDenied when the service explicitly refuses, nil
// otherwise.
func (g *Gate) CanJoin(ctx context.Context, userID string, roomID int64) error {
	endpoint := fmt.Sprintf("%s/api/v1/memberships/%s/rooms/%d", g.baseURL, url.PathEscape(userID), roomID)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build membership request: %w", err)
	}

	_, err = g.upstream.do(ctx, req, http.StatusForbidden, http.StatusNotFound)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return ErrJoinDenied
		}
		logging.Warn().Err(err).Str("user_id", userID).Int64("room_id", roomID).
			Msg("Membership service unavailable, allowing join")
		return nil
	}
	return nil
}
