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

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// InsertMessage persists a message and assigns its id and room_seq.
//
// room_seq is computed as MAX(room_seq)+1 within the room. The caller must
// hold the room's ingest lock; the UNIQUE (room_id, room_seq) constraint
// turns a violated assumption into an insert error instead of a gap.
func (db *DB) InsertMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	query := `INSERT INTO messages (id, room_id, room_seq, sender_id, msg_type, content, metadata, unread_count, created_at)
		VALUES (nextval('seq_messages'), ?,
			(SELECT COALESCE(MAX(room_seq), 0) + 1 FROM messages WHERE room_id = ?),
			?, ?, ?, ?, ?, ?)
		RETURNING id, room_seq`

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}

	err = stmt.QueryRowContext(ctx,
		msg.RoomID, msg.RoomID, msg.Sender, string(msg.Type), msg.Content,
		metadataParam(msg.Metadata), msg.UnreadCount, msg.CreatedAt,
	).Scan(&msg.ID, &msg.RoomSeq)
	metrics.RecordDBQuery("insert", "messages", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessage fetches a single message by id.
func (db *DB) GetMessage(ctx context.Context, messageID int64) (*models.Message, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, room_id, room_seq, sender_id, msg_type, content, metadata, unread_count, created_at
		FROM messages WHERE id = ?`

	msg, err := scanMessage(db.conn.QueryRowContext(ctx, query, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return msg, nil
}

// GetMessages returns one history page in ascending room_seq order.
// afterSeq is exclusive; pass 0 for the start of the log.
func (db *DB) GetMessages(ctx context.Context, roomID, afterSeq int64, limit int) ([]models.Message, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	query := `SELECT id, room_id, room_seq, sender_id, msg_type, content, metadata, unread_count, created_at
		FROM messages
		WHERE room_id = ? AND room_seq > ?
		ORDER BY room_seq ASC
		LIMIT ?`

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, roomID, afterSeq, limit)
	metrics.RecordDBQuery("select", "messages", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer closeWithLog(rows, "messages rows")

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message iteration failed: %w", err)
	}
	return messages, nil
}

// CountMessages returns the size of a room's log.
func (db *DB) CountMessages(ctx context.Context, roomID int64) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE room_id = ?`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// LastMessagePreview returns the content of the newest message in a room,
// empty when the log is empty.
func (db *DB) LastMessagePreview(ctx context.Context, roomID int64) (string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var content string
	err := db.conn.QueryRowContext(ctx,
		`SELECT content FROM messages WHERE room_id = ? ORDER BY room_seq DESC LIMIT 1`,
		roomID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last message: %w", err)
	}
	return content, nil
}

// UpdateMessageMetadata rewrites a message's metadata column. Used after
// every vote cast and bill settlement to keep the stored projection current.
func (db *DB) UpdateMessageMetadata(ctx context.Context, messageID int64, metadata json.RawMessage) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET metadata = ? WHERE id = ?`, metadataParam(metadata), messageID)
	metrics.RecordDBQuery("update", "messages", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update message metadata: %w", err)
	}
	return requireRow(res)
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var msgType string
	var metadata sql.NullString

	err := row.Scan(&msg.ID, &msg.RoomID, &msg.RoomSeq, &msg.Sender, &msgType,
		&msg.Content, &metadata, &msg.UnreadCount, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	msg.Type = models.MessageType(msgType)
	if metadata.Valid && metadata.String != "" {
		msg.Metadata = json.RawMessage(metadata.String)
	}
	return &msg, nil
}

// metadataParam maps empty metadata to NULL.
func metadataParam(m json.RawMessage) interface{} {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}
