// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minglehq/mingle/internal/models"
)

// CreateRoom inserts a new room and assigns its id.
func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO rooms (id, name, is_active, max_participants, category, description, location_name, notice, created_at)
		VALUES (nextval('seq_rooms'), ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := db.conn.QueryRowContext(ctx, query,
		room.Name, room.IsActive, room.MaxParticipants,
		nullable(room.Category), nullable(room.Description), nullable(room.LocationName),
		nullable(room.Notice), room.CreatedAt,
	).Scan(&room.ID)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

// GetRoom fetches a room by id. Returns ErrNotFound for unknown ids.
func (db *DB) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, name, is_active, max_participants,
		COALESCE(category, ''), COALESCE(description, ''), COALESCE(location_name, ''), COALESCE(notice, ''),
		created_at
		FROM rooms WHERE id = ?`

	var room models.Room
	err := db.conn.QueryRowContext(ctx, query, roomID).Scan(
		&room.ID, &room.Name, &room.IsActive, &room.MaxParticipants,
		&room.Category, &room.Description, &room.LocationName, &room.Notice,
		&room.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return &room, nil
}

// UpdateNotice replaces the room notice.
func (db *DB) UpdateNotice(ctx context.Context, roomID int64, notice string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE rooms SET notice = ? WHERE id = ?`, notice, roomID)
	if err != nil {
		return fmt.Errorf("failed to update notice: %w", err)
	}
	return requireRow(res)
}

// TouchLastMessage records the timestamp of the latest message, used to
// order the my-rooms listing.
func (db *DB) TouchLastMessage(ctx context.Context, roomID int64, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `UPDATE rooms SET last_message_at = ? WHERE id = ?`, at, roomID)
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

// ListRooms returns active rooms newest first.
func (db *DB) ListRooms(ctx context.Context, limit, offset int) ([]models.RoomSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT r.id, r.name, r.max_participants, COALESCE(r.category, ''), COALESCE(r.notice, ''),
		COALESCE(r.last_message_at, r.created_at),
		(SELECT COUNT(*) FROM participants p WHERE p.room_id = r.id AND p.is_active)
		FROM rooms r
		WHERE r.is_active
		ORDER BY r.created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer closeWithLog(rows, "rooms rows")

	return scanRoomSummaries(rows)
}

// ListRoomsForUser returns the rooms a user participates in, most recently
// active first. Rooms without messages sort by creation time.
func (db *DB) ListRoomsForUser(ctx context.Context, userID string) ([]models.RoomSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT r.id, r.name, r.max_participants, COALESCE(r.category, ''), COALESCE(r.notice, ''),
		COALESCE(r.last_message_at, r.created_at),
		(SELECT COUNT(*) FROM participants p2 WHERE p2.room_id = r.id AND p2.is_active)
		FROM rooms r
		JOIN participants p ON p.room_id = r.id
		WHERE p.user_id = ? AND p.is_active AND r.is_active
		ORDER BY COALESCE(r.last_message_at, r.created_at) DESC`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user rooms: %w", err)
	}
	defer closeWithLog(rows, "user rooms rows")

	return scanRoomSummaries(rows)
}

func scanRoomSummaries(rows *sql.Rows) ([]models.RoomSummary, error) {
	summaries := make([]models.RoomSummary, 0)
	for rows.Next() {
		var s models.RoomSummary
		if err := rows.Scan(&s.RoomID, &s.Name, &s.MaxParticipants, &s.Category, &s.Notice,
			&s.LastMessageTime, &s.ParticipantCount); err != nil {
			return nil, fmt.Errorf("failed to scan room summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("room summary iteration failed: %w", err)
	}
	return summaries, nil
}

// AddParticipant inserts or reactivates a membership row. Re-joining a room
// keeps the original joined_at, read marker, and role; an organizer who
// leaves and comes back is still the organizer.
func (db *DB) AddParticipant(ctx context.Context, p *models.Participant) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}

	query := `INSERT INTO participants (room_id, user_id, role, is_active, joined_at)
		VALUES (?, ?, ?, TRUE, ?)
		ON CONFLICT (room_id, user_id) DO UPDATE SET is_active = TRUE`

	if _, err := db.conn.ExecContext(ctx, query, p.RoomID, p.UserID, string(p.Role), p.JoinedAt); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// DeactivateParticipant marks a membership inactive. The row survives so
// historical messages keep a resolvable sender.
func (db *DB) DeactivateParticipant(ctx context.Context, roomID int64, userID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE participants SET is_active = FALSE WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate participant: %w", err)
	}
	return requireRow(res)
}

// GetParticipant fetches a membership row. Returns ErrNotFound when the user
// never joined or has left.
func (db *DB) GetParticipant(ctx context.Context, roomID int64, userID string) (*models.Participant, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT room_id, user_id, role, joined_at, COALESCE(last_read_at, TIMESTAMP '1970-01-01 00:00:00')
		FROM participants WHERE room_id = ? AND user_id = ? AND is_active`

	var p models.Participant
	var role string
	err := db.conn.QueryRowContext(ctx, query, roomID, userID).Scan(
		&p.RoomID, &p.UserID, &role, &p.JoinedAt, &p.LastReadAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	p.Role = models.Role(role)
	return &p, nil
}

// ListParticipants returns the active members of a room, organizers first.
func (db *DB) ListParticipants(ctx context.Context, roomID int64) ([]models.Participant, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT room_id, user_id, role, joined_at, COALESCE(last_read_at, TIMESTAMP '1970-01-01 00:00:00')
		FROM participants
		WHERE room_id = ? AND is_active
		ORDER BY CASE role WHEN 'ORGANIZER' THEN 0 ELSE 1 END, joined_at`

	rows, err := db.conn.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer closeWithLog(rows, "participants rows")

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		var role string
		if err := rows.Scan(&p.RoomID, &p.UserID, &role, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Role = models.Role(role)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("participant iteration failed: %w", err)
	}
	return participants, nil
}

// CountActiveParticipants returns the number of active members in a room.
// This is the totalParticipants term of the unread snapshot.
func (db *DB) CountActiveParticipants(ctx context.Context, roomID int64) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE room_id = ? AND is_active`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// SetLastRead advances a participant's read marker.
func (db *DB) SetLastRead(ctx context.Context, roomID int64, userID string, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE participants SET last_read_at = ? WHERE room_id = ? AND user_id = ? AND is_active`,
		at, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to set read marker: %w", err)
	}
	return requireRow(res)
}

// nullable maps empty strings to NULL so optional columns stay unset.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
