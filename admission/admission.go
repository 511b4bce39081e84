// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// Ledger is the storage the admitter reads and writes.
// *store.Store implements it.
type Ledger interface {
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)
	FindVote(ctx context.Context, pollID string, kind store.SignalKind, value string) (models.Vote, error)
	CountVotes(ctx context.Context, filter store.VoteFilter) (int, error)
	EarliestVote(ctx context.Context, filter store.VoteFilter) (time.Time, error)
	RecordVote(ctx context.Context, vote models.Vote) (models.Vote, models.Poll, error)
}

// Publisher is told about every admitted vote
type Publisher interface {
	BroadcastTally(pollID string, snapshot models.PollSnapshot)
}

type Policy struct {
	// StrictAddress allows only one vote per poll per source address
	StrictAddress bool
	// RequireFingerprint rejects votes that carry no fingerprint
	RequireFingerprint bool
	// RateLimit is the number of votes an address may cast across all
	// polls within RateWindow. Zero disables the limit.
	RateLimit  int
	RateWindow time.Duration
}

// DefaultPolicy is the policy the server runs with unless configured otherwise
func DefaultPolicy() Policy {
	return Policy{
		StrictAddress:      true,
		RequireFingerprint: true,
		RateLimit:          10,
		RateWindow:         time.Hour,
	}
}

type Result struct {
	Vote models.Vote
	Poll models.PollSnapshot
}

// Admitter decides whether a vote is accepted and, if so, records it.
// Admissions for the same poll run one at a time; different polls are
// admitted in parallel.
type Admitter struct {
	ledger    Ledger
	publisher Publisher
	policy    Policy
	locks     *keyedMutex
	now       func() time.Time
}

func New(ledger Ledger, publisher Publisher, policy Policy) *Admitter {
	return &Admitter{
		ledger:    ledger,
		publisher: publisher,
		policy:    policy,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Admit runs the admission policy for one vote. Checks run strongest
// signal first and the first match wins:
//
//  1. a vote under the same cookie token
//  2. a vote under the same fingerprint
//  3. a vote from the same address (when StrictAddress)
//  4. the address rate limit across all polls
//
// If none match, the vote is appended to the ledger together with the
// tally increment and the new tally is published to the poll's viewers.
func (a *Admitter) Admit(ctx context.Context, pollID string, optionIndex int, signals identity.Signals) (Result, error) {
	if signals.CookieToken == "" {
		return Result{}, fmt.Errorf("%w: cookie token", ErrMissingIdentitySignal)
	}
	if a.policy.RequireFingerprint && signals.Fingerprint == "" {
		return Result{}, fmt.Errorf("%w: fingerprint", ErrMissingIdentitySignal)
	}

	unlock, err := a.locks.Lock(ctx, pollID)
	if err != nil {
		return Result{}, storageErr(err)
	}
	defer unlock()

	poll, err := a.ledger.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, ErrPollNotFound
	}
	if err != nil {
		return Result{}, storageErr(err)
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return Result{}, ErrInvalidOption
	}

	for _, s := range signals.Ranked() {
		if err := a.checkReplay(ctx, pollID, s); err != nil {
			return Result{}, err
		}
	}

	now := a.now()
	if err := a.checkRate(ctx, signals.Address, now); err != nil {
		return Result{}, err
	}

	vote, updated, err := a.ledger.RecordVote(ctx, models.Vote{
		PollID:      pollID,
		OptionIndex: optionIndex,
		VoterToken:  signals.CookieToken,
		Fingerprint: signals.Fingerprint,
		Address:     signals.Address,
		CreatedAt:   now,
	})
	if errors.Is(err, store.ErrInvalidOption) {
		return Result{}, ErrInvalidOption
	}
	if err != nil {
		return Result{}, storageErr(err)
	}

	snapshot := updated.Snapshot()
	// Still under the poll lock, so viewers see tallies in admission order.
	if a.publisher != nil {
		a.publisher.BroadcastTally(pollID, snapshot)
	}

	slog.Info("vote recorded", "poll_id", pollID, "vote_id", vote.ID, "option_index", optionIndex, "total_votes", snapshot.TotalVotes)

	return Result{Vote: vote, Poll: snapshot}, nil
}

func (a *Admitter) checkReplay(ctx context.Context, pollID string, s identity.Signal) error {
	var kind store.SignalKind
	switch s.Kind {
	case identity.KindCookie:
		kind = store.SignalCookie
	case identity.KindFingerprint:
		kind = store.SignalFingerprint
	case identity.KindAddress:
		if !a.policy.StrictAddress {
			return nil
		}
		kind = store.SignalAddress
	default:
		return nil
	}

	prev, err := a.ledger.FindVote(ctx, pollID, kind, s.Value)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storageErr(err)
	}

	rejected := &AlreadyVotedError{Signal: s.Kind}
	if s.Kind != identity.KindAddress {
		idx := prev.OptionIndex
		rejected.PreviousOption = &idx
	}
	return rejected
}

func (a *Admitter) checkRate(ctx context.Context, address string, now time.Time) error {
	if a.policy.RateLimit <= 0 {
		return nil
	}

	filter := store.VoteFilter{Address: address, Since: now.Add(-a.policy.RateWindow)}
	count, err := a.ledger.CountVotes(ctx, filter)
	if err != nil {
		return storageErr(err)
	}
	if count < a.policy.RateLimit {
		return nil
	}

	retryAt := now.Add(a.policy.RateWindow)
	if earliest, err := a.ledger.EarliestVote(ctx, filter); err == nil {
		retryAt = earliest.Add(a.policy.RateWindow)
	}
	return &RateLimitedError{RetryAt: retryAt}
}

// Check reports whether a vote exists on the poll under the cookie token
// or, failing that, the fingerprint. Empty signals are skipped.
func (a *Admitter) Check(ctx context.Context, pollID, cookieToken, fingerprint string) (bool, int, error) {
	lookups := []struct {
		kind  store.SignalKind
		value string
	}{
		{store.SignalCookie, cookieToken},
		{store.SignalFingerprint, fingerprint},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		v, err := a.ledger.FindVote(ctx, pollID, l.kind, l.value)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, 0, storageErr(err)
		}
		return true, v.OptionIndex, nil
	}
	return false, 0, nil
}
