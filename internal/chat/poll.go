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

	"github.com/goccy/go-json"

	"github.com/minglehq/mingle/internal/database"
	"github.com/minglehq/mingle/internal/logging"
	"github.com/minglehq/mingle/internal/metrics"
	"github.com/minglehq/mingle/internal/models"
)

// CreatePollParams carries a poll creation request after transport
// validation.
type CreatePollParams struct {
	Title          string
	Options        []string
	Anonymous      bool
	MultipleChoice bool
}

// CreatePoll ingests a POLL message carrying an embedded vote. The message
// and the vote rows are created under the room's ingest lock so the initial
// zero-tally metadata projection is written before the message is broadcast.
func (s *Service) CreatePoll(ctx context.Context, roomID int64, creatorID string, params CreatePollParams) (*models.VoteResult, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" || len(params.Options) < 2 || len(params.Options) > s.cfg.MaxPollOptions {
		return nil, ErrInvalidMessage
	}
	for _, opt := range params.Options {
		if strings.TrimSpace(opt) == "" {
			return nil, ErrInvalidMessage
		}
	}

	var vote *models.Vote
	enrich := func(ctx context.Context, msg *models.Message) (json.RawMessage, error) {
		vote = &models.Vote{
			RoomID:         roomID,
			MessageID:      msg.ID,
			Title:          title,
			Anonymous:      params.Anonymous,
			MultipleChoice: params.MultipleChoice,
			Creator:        creatorID,
			CreatedAt:      time.Now().UTC(),
		}
		for _, opt := range params.Options {
			vote.Options = append(vote.Options, models.VoteOption{Content: opt, Voters: []string{}})
		}
		if err := s.db.CreateVote(ctx, vote); err != nil {
			return nil, err
		}
		return tallyProjection(vote).Marshal()
	}

	// The POLL metadata embedded at insert is a placeholder; enrich
	// rewrites it once the vote rows exist and IDs are known.
	if _, err := s.ingest(ctx, roomID, creatorID, title, models.PollPayload{Title: title,
		Anonymous: params.Anonymous, MultipleChoice: params.MultipleChoice}, enrich); err != nil {
		return nil, err
	}

	result := voteResult(vote)
	return &result, nil
}

// CastVote replaces the caller's ballot set for a vote with the given
// selection. An empty selection withdraws the ballot. Casting again always
// clears the previous selection first, so switching options on a
// single-choice vote is one call. Selecting more than one option on a
// single-choice vote is rejected outright.
func (s *Service) CastVote(ctx context.Context, voteID int64, voterID string, optionIDs []int64) (*models.VoteResult, error) {
	vote, err := s.db.GetVote(ctx, voteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}

	if _, err := s.requireParticipant(ctx, vote.RoomID, voterID); err != nil {
		return nil, err
	}

	if !vote.MultipleChoice && len(optionIDs) > 1 {
		return nil, ErrInvalidVoteSelection
	}
	seen := make(map[int64]bool, len(optionIDs))
	for _, optID := range optionIDs {
		if seen[optID] {
			return nil, ErrInvalidVoteSelection
		}
		seen[optID] = true
		ok, err := s.db.HasOption(ctx, voteID, optID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidVoteSelection
		}
	}

	// Serialize casts per vote so the reload and the metadata rewrite see
	// a consistent ballot set.
	mu := s.voteLock(voteID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.db.ReplaceBallots(ctx, voteID, voterID, optionIDs); err != nil {
		return nil, err
	}

	vote, err = s.db.GetVote(ctx, voteID)
	if err != nil {
		return nil, err
	}

	projection := tallyProjection(vote)
	metadata, err := projection.Marshal()
	if err != nil {
		return nil, err
	}
	if err := s.db.UpdateMessageMetadata(ctx, vote.MessageID, metadata); err != nil {
		return nil, err
	}

	s.presence.RegisterActivity(vote.RoomID, voterID)
	metrics.VoteCasts.Inc()

	event := &models.ChatEvent{
		MessageID:  vote.MessageID,
		RoomID:     vote.RoomID,
		Type:       models.EventTypeVoteUpdate,
		SenderID:   voterID,
		SenderName: s.displayName(ctx, voterID),
		Metadata:   metadata,
		SentAt:     time.Now().UTC(),
	}
	if err := s.broadcaster.PublishChatEvent(event); err != nil {
		logging.Warn().Err(err).Int64("vote_id", voteID).Msg("Failed to publish vote update")
	}

	result := voteResult(vote)
	return &result, nil
}

// GetPoll returns the current redacted tally. The caller must be a
// participant of the vote's room.
func (s *Service) GetPoll(ctx context.Context, voteID int64, callerID string) (*models.VoteResult, error) {
	vote, err := s.db.GetVote(ctx, voteID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrVoteNotFound
		}
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, vote.RoomID, callerID); err != nil {
		return nil, err
	}
	result := voteResult(vote)
	return &result, nil
}

// tallyProjection builds the externally visible tally for a vote. For
// anonymous votes the voter lists are nil and serialize as JSON null; counts
// are always present. Stored metadata and broadcasts only ever see this
// projection, never raw ballots.
func tallyProjection(vote *models.Vote) models.PollPayload {
	payload := models.PollPayload{
		VoteID:         vote.ID,
		Title:          vote.Title,
		Anonymous:      vote.Anonymous,
		MultipleChoice: vote.MultipleChoice,
		Options:        make([]models.OptionTally, 0, len(vote.Options)),
	}
	for _, opt := range vote.Options {
		tally := models.OptionTally{
			OptionID:  opt.ID,
			Content:   opt.Content,
			VoteCount: len(opt.Voters),
		}
		if !vote.Anonymous {
			tally.VoterIDs = append([]string{}, opt.Voters...)
		}
		payload.Options = append(payload.Options, tally)
	}
	return payload
}

func voteResult(vote *models.Vote) models.VoteResult {
	projection := tallyProjection(vote)
	return models.VoteResult{
		VoteID:         vote.ID,
		Title:          vote.Title,
		Anonymous:      vote.Anonymous,
		MultipleChoice: vote.MultipleChoice,
		CreatorID:      vote.Creator,
		Options:        projection.Options,
	}
}
