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

	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// CreateVote persists a vote and its options in one transaction, assigning
// ids to the vote and every option.
func (db *DB) CreateVote(ctx context.Context, vote *models.Vote) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	err = tx.QueryRowContext(ctx,
		`INSERT INTO votes (id, room_id, message_id, title, is_anonymous, is_multiple_choice, created_by, created_at)
		VALUES (nextval('seq_votes'), ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		vote.RoomID, vote.MessageID, vote.Title, vote.Anonymous, vote.MultipleChoice,
		vote.Creator, vote.CreatedAt,
	).Scan(&vote.ID)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	for i := range vote.Options {
		opt := &vote.Options[i]
		opt.VoteID = vote.ID
		opt.Position = i
		err = tx.QueryRowContext(ctx,
			`INSERT INTO vote_options (id, vote_id, position, content)
			VALUES (nextval('seq_vote_options'), ?, ?, ?)
			RETURNING id`,
			vote.ID, i, opt.Content,
		).Scan(&opt.ID)
		if err != nil {
			return fmt.Errorf("failed to insert vote option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vote: %w", err)
	}
	return nil
}

// GetVote fetches a vote with its options and voter sets. Voters always
// contain real identities here; anonymity is applied at serialization.
func (db *DB) GetVote(ctx context.Context, voteID int64) (*models.Vote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var vote models.Vote
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, room_id, message_id, title, is_anonymous, is_multiple_choice, created_by, created_at
		FROM votes WHERE id = ?`, voteID,
	).Scan(&vote.ID, &vote.RoomID, &vote.MessageID, &vote.Title,
		&vote.Anonymous, &vote.MultipleChoice, &vote.Creator, &vote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vote: %w", err)
	}

	if err := db.loadOptions(ctx, &vote); err != nil {
		return nil, err
	}
	return &vote, nil
}

// GetVoteByMessage fetches the vote embedded in a POLL message.
func (db *DB) GetVoteByMessage(ctx context.Context, messageID int64) (*models.Vote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var voteID int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM votes WHERE message_id = ?`, messageID).Scan(&voteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vote by message: %w", err)
	}
	return db.GetVote(ctx, voteID)
}

// loadOptions populates vote.Options in creation order with voter sets.
func (db *DB) loadOptions(ctx context.Context, vote *models.Vote) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, vote_id, position, content FROM vote_options WHERE vote_id = ? ORDER BY position`,
		vote.ID)
	if err != nil {
		return fmt.Errorf("failed to query vote options: %w", err)
	}
	defer closeWithLog(rows, "vote options rows")

	vote.Options = vote.Options[:0]
	byID := make(map[int64]*models.VoteOption)
	for rows.Next() {
		var opt models.VoteOption
		if err := rows.Scan(&opt.ID, &opt.VoteID, &opt.Position, &opt.Content); err != nil {
			return fmt.Errorf("failed to scan vote option: %w", err)
		}
		vote.Options = append(vote.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("vote option iteration failed: %w", err)
	}
	for i := range vote.Options {
		vote.Options[i].Voters = make([]string, 0)
		byID[vote.Options[i].ID] = &vote.Options[i]
	}

	ballotRows, err := db.conn.QueryContext(ctx,
		`SELECT option_id, user_id FROM ballots WHERE vote_id = ? ORDER BY cast_at, user_id`,
		vote.ID)
	if err != nil {
		return fmt.Errorf("failed to query ballots: %w", err)
	}
	defer closeWithLog(ballotRows, "ballots rows")

	for ballotRows.Next() {
		var optionID int64
		var userID string
		if err := ballotRows.Scan(&optionID, &userID); err != nil {
			return fmt.Errorf("failed to scan ballot: %w", err)
		}
		if opt, ok := byID[optionID]; ok {
			opt.Voters = append(opt.Voters, userID)
		}
	}
	if err := ballotRows.Err(); err != nil {
		return fmt.Errorf("ballot iteration failed: %w", err)
	}
	return nil
}

// ReplaceBallots atomically replaces one voter's selections across a vote:
// every existing ballot for the user is cleared before the new option ids
// are inserted. Passing no option ids withdraws the voter entirely.
//
// The caller serializes casts per vote, so the delete-then-insert pair
// cannot interleave with a concurrent cast by the same user.
func (db *DB) ReplaceBallots(ctx context.Context, voteID int64, userID string, optionIDs []int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ballots WHERE vote_id = ? AND user_id = ?`, voteID, userID); err != nil {
		metrics.RecordDBQuery("replace", "ballots", time.Since(start), err)
		return fmt.Errorf("failed to clear ballots: %w", err)
	}

	now := time.Now().UTC()
	for _, optionID := range optionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ballots (vote_id, option_id, user_id, cast_at) VALUES (?, ?, ?, ?)`,
			voteID, optionID, userID, now); err != nil {
			metrics.RecordDBQuery("replace", "ballots", time.Since(start), err)
			return fmt.Errorf("failed to insert ballot: %w", err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("replace", "ballots", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to commit ballots: %w", err)
	}
	return nil
}

// HasOption reports whether optionID belongs to voteID. Cast validation
// rejects ballots naming options from other votes.
func (db *DB) HasOption(ctx context.Context, voteID, optionID int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM vote_options WHERE vote_id = ? AND id = ?`, voteID, optionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check vote option: %w", err)
	}
	return true, nil
}

// rollbackQuietly rolls back a transaction, ignoring the error a committed
// transaction returns.
func rollbackQuietly(tx *sql.Tx) {
	_ = tx.Rollback()
}
