// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import "errors"

// Domain sentinels. The API layer maps each onto its response code; the
// service never shapes HTTP responses itself.
var (
	// ErrRoomNotFound is returned for operations naming an unknown or
	// inactive room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotParticipant is returned when the acting identity has no active
	// membership in the target room.
	ErrNotParticipant = errors.New("not a participant of this room")

	// ErrForbidden is returned when an operation requires the ORGANIZER
	// role and the actor is a plain member.
	ErrForbidden = errors.New("operation requires organizer role")

	// ErrRoomFull is returned when joining would exceed the room capacity.
	ErrRoomFull = errors.New("room is at capacity")

	// ErrMessageNotFound is returned for operations naming an unknown message.
	ErrMessageNotFound = errors.New("message not found")

	// ErrVoteNotFound is returned for casts and lookups naming an unknown vote.
	ErrVoteNotFound = errors.New("vote not found")

	// ErrInvalidVoteSelection rejects a cast that names unknown options,
	// or multiple options on a single-choice vote.
	ErrInvalidVoteSelection = errors.New("invalid vote selection")

	// ErrInvalidMessage rejects ingest of an empty, oversized or
	// wrongly-typed message.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInviteNotFound is returned for unknown or already resolved
	// invitations.
	ErrInviteNotFound = errors.New("invitation not found")
)
