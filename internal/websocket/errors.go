// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package websocket

import (
	"errors"

	"github.com/minglehq/mingle/internal/chat"
)

// knownErrorMessage returns the client-facing text for expected engine
// errors, empty for anything else.
func knownErrorMessage(err error) string {
	for _, known := range []error{
		chat.ErrRoomNotFound,
		chat.ErrNotParticipant,
		chat.ErrForbidden,
		chat.ErrRoomFull,
		chat.ErrMessageNotFound,
		chat.ErrVoteNotFound,
		chat.ErrInvalidVoteSelection,
		chat.ErrInvalidMessage,
		chat.ErrInviteNotFound,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ""
}
