// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidOption = errors.New("option index out of range")
)

// SignalKind names the identity signal column a vote is looked up by
type SignalKind string

const (
	SignalCookie      SignalKind = "cookie"
	SignalFingerprint SignalKind = "fingerprint"
	SignalAddress     SignalKind = "address"
)

func (k SignalKind) column() (string, error) {
	switch k {
	case SignalCookie:
		return "voter_token", nil
	case SignalFingerprint:
		return "fingerprint", nil
	case SignalAddress:
		return "address", nil
	}
	return "", fmt.Errorf("unknown signal kind %q", k)
}

// VoteFilter selects votes for CountVotes and EarliestVote.
// Zero fields are ignored.
type VoteFilter struct {
	PollID  string
	Address string
	Since   time.Time
}

func (f VoteFilter) where() (string, []any) {
	clause := "WHERE 1 = 1"
	var args []any
	if f.PollID != "" {
		args = append(args, f.PollID)
		clause += fmt.Sprintf(" AND poll_id = $%d", len(args))
	}
	if f.Address != "" {
		args = append(args, f.Address)
		clause += fmt.Sprintf(" AND address = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since.UnixMilli())
		clause += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	return clause, args
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists polls, their tallies, and the vote ledger
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// CreatePoll inserts a poll with zeroed counters.
// Options are stored in the given order.
func (s *Store) CreatePoll(ctx context.Context, question string, options []string) (models.Poll, error) {
	poll := models.Poll{
		PollID:    uuid.NewString(),
		Question:  question,
		Options:   make([]models.Option, len(options)),
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, total_votes, created_at)
		VALUES ($1, $2, 0, $3)
	`, poll.PollID, poll.Question, poll.CreatedAt.UnixMilli())
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, text := range options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (poll_id, position, text, votes)
			VALUES ($1, $2, $3, 0)
		`, poll.PollID, i, text)
		if err != nil {
			return models.Poll{}, fmt.Errorf("failed to insert option: %w", err)
		}
		poll.Options[i] = models.Option{Text: text}
	}

	if err := tx.Commit(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return poll, nil
}

// GetPoll returns the poll with its options in position order.
// Returns ErrNotFound if no such poll exists.
func (s *Store) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	return getPoll(ctx, s.db, pollID)
}

func getPoll(ctx context.Context, q querier, pollID string) (models.Poll, error) {
	var poll models.Poll
	var createdAt int64
	err := q.QueryRowContext(ctx, `
		SELECT id, question, total_votes, created_at FROM poll WHERE id = $1
	`, pollID).Scan(&poll.PollID, &poll.Question, &poll.TotalVotes, &createdAt)
	if err == sql.ErrNoRows {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	poll.CreatedAt = time.UnixMilli(createdAt).UTC()

	rows, err := q.QueryContext(ctx, `
		SELECT text, votes FROM poll_option WHERE poll_id = $1 ORDER BY position
	`, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	poll.Options = []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.Text, &opt.Votes); err != nil {
			return models.Poll{}, fmt.Errorf("failed to scan option: %w", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to read options: %w", err)
	}

	return poll, nil
}

// IncrementOption adds one vote to the option and the poll total
func (s *Store) IncrementOption(ctx context.Context, pollID string, optionIndex int) (models.Poll, error) {
	var poll models.Poll
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		poll, err = incrementOption(ctx, tx, pollID, optionIndex)
		return err
	})
	return poll, err
}

func incrementOption(ctx context.Context, tx *sql.Tx, pollID string, optionIndex int) (models.Poll, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE poll_option SET votes = votes + 1 WHERE poll_id = $1 AND position = $2
	`, pollID, optionIndex)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to increment option: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to increment option: %w", err)
	}
	if n != 1 {
		return models.Poll{}, ErrInvalidOption
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE poll SET total_votes = total_votes + 1 WHERE id = $1
	`, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to increment total: %w", err)
	}

	return getPoll(ctx, tx, pollID)
}

// FindVote returns the vote cast on pollID under the given identity signal,
// or ErrNotFound.
func (s *Store) FindVote(ctx context.Context, pollID string, kind SignalKind, value string) (models.Vote, error) {
	column, err := kind.column()
	if err != nil {
		return models.Vote{}, err
	}

	var v models.Vote
	var createdAt int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, option_index, voter_token, fingerprint, address, created_at
		FROM vote
		WHERE poll_id = $1 AND `+column+` = $2
		ORDER BY created_at
		LIMIT 1
	`, pollID, value).Scan(&v.ID, &v.PollID, &v.OptionIndex, &v.VoterToken, &v.Fingerprint, &v.Address, &createdAt)
	if err == sql.ErrNoRows {
		return models.Vote{}, ErrNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query vote: %w", err)
	}
	v.CreatedAt = time.UnixMilli(createdAt).UTC()

	return v, nil
}

// CountVotes counts ledger records matching the filter
func (s *Store) CountVotes(ctx context.Context, filter VoteFilter) (int, error) {
	where, args := filter.where()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// EarliestVote returns the creation time of the oldest vote matching the
// filter, or ErrNotFound.
func (s *Store) EarliestVote(ctx context.Context, filter VoteFilter) (time.Time, error) {
	where, args := filter.where()
	var earliest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM vote `+where, args...).Scan(&earliest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query earliest vote: %w", err)
	}
	if !earliest.Valid {
		return time.Time{}, ErrNotFound
	}
	return time.UnixMilli(earliest.Int64).UTC(), nil
}

// InsertVote appends a vote to the ledger without touching the tally.
// Admission uses RecordVote instead.
func (s *Store) InsertVote(ctx context.Context, vote models.Vote) (models.Vote, error) {
	return insertVote(ctx, s.db, s.stamp(vote))
}

func insertVote(ctx context.Context, q querier, vote models.Vote) (models.Vote, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vote (id, poll_id, option_index, voter_token, fingerprint, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, vote.ID, vote.PollID, vote.OptionIndex, vote.VoterToken, vote.Fingerprint, vote.Address, vote.CreatedAt.UnixMilli())
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to insert vote: %w", err)
	}
	return vote, nil
}

// RecordVote appends the vote and increments its option and the poll total
// in one transaction. Either both the ledger record and the tally change
// are committed or neither is.
func (s *Store) RecordVote(ctx context.Context, vote models.Vote) (models.Vote, models.Poll, error) {
	vote = s.stamp(vote)
	var poll models.Poll
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := insertVote(ctx, tx, vote); err != nil {
			return err
		}
		var err error
		poll, err = incrementOption(ctx, tx, vote.PollID, vote.OptionIndex)
		return err
	})
	if err != nil {
		return models.Vote{}, models.Poll{}, err
	}
	return vote, poll, nil
}

func (s *Store) stamp(vote models.Vote) models.Vote {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = s.now()
	}
	vote.CreatedAt = vote.CreatedAt.UTC().Truncate(time.Millisecond)
	return vote
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
