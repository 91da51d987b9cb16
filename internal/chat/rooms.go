// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/models"
)

// CreateRoomParams carries the creation request after transport validation.
type CreateRoomParams struct {
	Name            string
	MaxParticipants int
	Category        string
	Description     string
	LocationName    string
}

// CreateRoom creates a room and enrolls the creator as its organizer.
func (s *Service) CreateRoom(ctx context.Context, creatorID string, params CreateRoomParams) (*models.Room, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidMessage
	}
	capacity := params.MaxParticipants
	if capacity <= 0 || capacity > s.cfg.MaxRoomCapacity {
		capacity = s.cfg.MaxRoomCapacity
	}

	room := &models.Room{
		Name:            name,
		IsActive:        true,
		MaxParticipants: capacity,
		Category:        params.Category,
		Description:     params.Description,
		LocationName:    params.LocationName,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.db.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	organizer := &models.Participant{
		RoomID:   room.ID,
		UserID:   creatorID,
		Role:     models.RoleOrganizer,
		JoinedAt: room.CreatedAt,
	}
	if err := s.db.AddParticipant(ctx, organizer); err != nil {
		return nil, err
	}

	logging.Info().Int64("room_id", room.ID).Str("creator", creatorID).Msg("Room created")
	return room, nil
}

// GetRoom returns a single room.
func (s *Service) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.db.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// ListRooms pages through all active rooms.
func (s *Service) ListRooms(ctx context.Context, limit, offset int) ([]models.RoomSummary, error) {
	if limit <= 0 || limit > s.cfg.MaxHistoryPageSize {
		limit = s.cfg.HistoryPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.db.ListRooms(ctx, limit, offset)
}

// MyRooms lists the rooms the identity is an active participant of, most
// recently active first, with last-message previews filled in.
func (s *Service) MyRooms(ctx context.Context, userID string) ([]models.RoomSummary, error) {
	rooms, err := s.db.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		preview, err := s.db.LastMessagePreview(ctx, rooms[i].RoomID)
		if err != nil {
			logging.Warn().Err(err).Int64("room_id", rooms[i].RoomID).
				Msg("Failed to load last-message preview")
			continue
		}
		rooms[i].LastMessage = preview
	}
	return rooms, nil
}

// Participants returns the room's active membership with directory fields
// resolved, organizers first. The caller must be a participant.
func (s *Service) Participants(ctx context.Context, roomID int64, callerID string) ([]models.ParticipantInfo, error) {
	if _, err := s.requireParticipant(ctx, roomID, callerID); err != nil {
		return nil, err
	}

	participants, err := s.db.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}

	infos := make([]models.ParticipantInfo, 0, len(participants))
	for _, p := range participants {
		info := models.ParticipantInfo{
			UserID:   p.UserID,
			Role:     p.Role,
			JoinedAt: p.JoinedAt,
		}
		if s.directory != nil {
			if profile, err := s.directory.GetProfile(ctx, p.UserID); err == nil && profile != nil {
				info.Username = profile.Username
				info.Nickname = profile.Nickname
				info.AvatarURL = profile.AvatarURL
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// JoinRoom enrolls the identity as a MEMBER. Joining is idempotent: a join by
// an existing participant reactivates the membership and succeeds. Capacity
// counts only active participants, so leaving frees a seat.
func (s *Service) JoinRoom(ctx context.Context, roomID int64, userID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if s.gate != nil {
		if err := s.gate.CanJoin(ctx, userID, roomID); err != nil {
			return err
		}
	}

	// The capacity check and the insert race with concurrent joins; the
	// ingest lock doubles as the membership lock so counts stay exact.
	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.db.GetParticipant(ctx, roomID, userID); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	count, err := s.db.CountActiveParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	if room.MaxParticipants > 0 && count >= room.MaxParticipants {
		return ErrRoomFull
	}

	p := &models.Participant{
		RoomID:   roomID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now().UTC(),
	}
	return s.db.AddParticipant(ctx, p)
}

// LeaveRoom deactivates the membership and drops the identity from the
// room's presence set. The participant row survives so past messages keep
// their sender and the read marker is preserved across rejoin.
func (s *Service) LeaveRoom(ctx context.Context, roomID int64, userID string) error {
	if _, err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return err
	}
	if err := s.db.DeactivateParticipant(ctx, roomID, userID); err != nil {
		return err
	}
	s.presence.Leave(roomID, userID)
	return nil
}

// SetNotice replaces the room's pinned notice. Organizer only.
func (s *Service) SetNotice(ctx context.Context, roomID int64, callerID, notice string) error {
	if _, err := s.requireOrganizer(ctx, roomID, callerID); err != nil {
		return err
	}
	return s.db.UpdateNotice(ctx, roomID, notice)
}

// Invite records a pending invitation. Organizer only; inviting an existing
// active participant is rejected.
func (s *Service) Invite(ctx context.Context, roomID int64, inviterID, inviteeID string) (*models.Invitation, error) {
	if _, err := s.requireOrganizer(ctx, roomID, inviterID); err != nil {
		return nil, err
	}

	if _, err := s.db.GetParticipant(ctx, roomID, inviteeID); err == nil {
		return nil, ErrInvalidMessage
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	inv := &models.Invitation{
		RoomID:    roomID,
		Inviter:   inviterID,
		Invitee:   inviteeID,
		Status:    models.InvitePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// PendingInvites lists the identity's open invitations.
func (s *Service) PendingInvites(ctx context.Context, userID string) ([]models.Invitation, error) {
	return s.db.ListPendingInvitations(ctx, userID)
}

// AcceptInvite resolves a pending invitation and joins the room. Only the
// invitee may accept, and only while the invitation is still pending.
func (s *Service) AcceptInvite(ctx context.Context, inviteID int64, userID string) error {
	inv, err := s.loadInvite(ctx, inviteID, userID)
	if err != nil {
		return err
	}
	if err := s.JoinRoom(ctx, inv.RoomID, userID); err != nil {
		return err
	}
	if err := s.db.ResolveInvitation(ctx, inviteID, models.InviteAccepted); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	return nil
}

// DeclineInvite resolves a pending invitation without joining.
func (s *Service) DeclineInvite(ctx context.Context, inviteID int64, userID string) error {
	if _, err := s.loadInvite(ctx, inviteID, userID); err != nil {
		return err
	}
	if err := s.db.ResolveInvitation(ctx, inviteID, models.InviteDeclined); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	return nil
}

func (s *Service) loadInvite(ctx context.Context, inviteID int64, userID string) (*models.Invitation, error) {
	inv, err := s.db.GetInvitation(ctx, inviteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if inv.Invitee != userID {
		return nil, ErrForbidden
	}
	if inv.Status != models.InvitePending {
		return nil, ErrInviteNotFound
	}
	return inv, nil
}
