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

// CreateInvitation inserts a pending invitation and assigns its id.
func (db *DB) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Status == "" {
		inv.Status = models.InvitePending
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO invitations (id, room_id, inviter_id, invitee_id, status, created_at)
		VALUES (nextval('seq_invitations'), ?, ?, ?, ?, ?)
		RETURNING id`,
		inv.RoomID, inv.Inviter, inv.Invitee, string(inv.Status), inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// GetInvitation fetches an invitation by id.
func (db *DB) GetInvitation(ctx context.Context, inviteID int64) (*models.Invitation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, room_id, inviter_id, invitee_id, status, created_at, responded_at
		FROM invitations WHERE id = ?`

	var inv models.Invitation
	var status string
	var responded sql.NullTime
	err := db.conn.QueryRowContext(ctx, query, inviteID).Scan(
		&inv.ID, &inv.RoomID, &inv.Inviter, &inv.Invitee, &status, &inv.CreatedAt, &responded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invitation: %w", err)
	}
	inv.Status = models.InviteStatus(status)
	if responded.Valid {
		inv.RespondedAt = &responded.Time
	}
	return &inv, nil
}

// ListPendingInvitations returns a user's pending invitations, oldest first.
func (db *DB) ListPendingInvitations(ctx context.Context, userID string) ([]models.Invitation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, room_id, inviter_id, invitee_id, status, created_at, responded_at
		FROM invitations WHERE invitee_id = ? AND status = 'PENDING'
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer closeWithLog(rows, "invitations rows")

	invites := make([]models.Invitation, 0)
	for rows.Next() {
		var inv models.Invitation
		var status string
		var responded sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.RoomID, &inv.Inviter, &inv.Invitee,
			&status, &inv.CreatedAt, &responded); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.Status = models.InviteStatus(status)
		if responded.Valid {
			inv.RespondedAt = &responded.Time
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invitation iteration failed: %w", err)
	}
	return invites, nil
}

// ResolveInvitation transitions a pending invitation to ACCEPTED or
// DECLINED. Returns ErrNotFound when the invitation does not exist or was
// already resolved.
func (db *DB) ResolveInvitation(ctx context.Context, inviteID int64, status models.InviteStatus) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE invitations SET status = ?, responded_at = ? WHERE id = ? AND status = 'PENDING'`,
		string(status), time.Now().UTC(), inviteID)
	if err != nil {
		return fmt.Errorf("failed to resolve invitation: %w", err)
	}
	return requireRow(res)
}
