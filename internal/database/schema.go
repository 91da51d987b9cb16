// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates the sequences and tables.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// schemaQueries returns the DDL statements in dependency order.
func schemaQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_rooms START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_messages START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_votes START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_vote_options START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_invitations START 1`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			max_participants INTEGER NOT NULL,
			category TEXT,
			description TEXT,
			location_name TEXT,
			notice TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_at TIMESTAMP
		)`,

		// Membership is soft: leaving never deletes the row, it only stops
		// counting toward unread snapshots once is_active is false.
		`CREATE TABLE IF NOT EXISTS participants (
			room_id BIGINT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_read_at TIMESTAMP,
			PRIMARY KEY (room_id, user_id)
		)`,

		// room_seq is assigned under the per-room ingest lock held by the
		// chat service, so MAX(room_seq)+1 cannot race.
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT PRIMARY KEY,
			room_id BIGINT NOT NULL,
			room_seq BIGINT NOT NULL,
			sender_id TEXT NOT NULL,
			msg_type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			unread_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (room_id, room_seq)
		)`,

		`CREATE TABLE IF NOT EXISTS votes (
			id BIGINT PRIMARY KEY,
			room_id BIGINT NOT NULL,
			message_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			is_multiple_choice BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS vote_options (
			id BIGINT PRIMARY KEY,
			vote_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL
		)`,

		// Ballots record real identities even for anonymous votes; the
		// redaction happens at the serialization boundary, never here.
		`CREATE TABLE IF NOT EXISTS ballots (
			vote_id BIGINT NOT NULL,
			option_id BIGINT NOT NULL,
			user_id TEXT NOT NULL,
			cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (vote_id, option_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS invitations (
			id BIGINT PRIMARY KEY,
			room_id BIGINT NOT NULL,
			inviter_id TEXT NOT NULL,
			invitee_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			responded_at TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes for common query patterns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		// History paging: room scoped, ordered by room_seq
		`CREATE INDEX IF NOT EXISTS idx_messages_room_seq ON messages (room_id, room_seq)`,
		// My-rooms listing joins on membership
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON participants (user_id)`,
		// Vote lookup by owning message
		`CREATE INDEX IF NOT EXISTS idx_votes_message ON votes (message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_options_vote ON vote_options (vote_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ballots_vote ON ballots (vote_id)`,
		// Pending invitations per invitee
		`CREATE INDEX IF NOT EXISTS idx_invitations_invitee ON invitations (invitee_id, status)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
