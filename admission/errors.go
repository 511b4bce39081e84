// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/livepoll/identity"
)

var (
	ErrPollNotFound          = errors.New("poll not found")
	ErrInvalidOption         = errors.New("invalid option index")
	ErrMissingIdentitySignal = errors.New("missing identity signal")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrRateLimited           = errors.New("rate limited")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)

// AlreadyVotedError is returned when a prior vote exists under one of the
// voter's identity signals. PreviousOption is nil for address matches,
// since an address is shared by unrelated voters.
type AlreadyVotedError struct {
	Signal         identity.Kind
	PreviousOption *int
}

func (e *AlreadyVotedError) Error() string {
	if e.PreviousOption != nil {
		return fmt.Sprintf("already voted (matched %s, option %d)", e.Signal, *e.PreviousOption)
	}
	return fmt.Sprintf("already voted (matched %s)", e.Signal)
}

func (e *AlreadyVotedError) Is(target error) bool {
	return target == ErrAlreadyVoted
}

// RateLimitedError is returned when an address has used up its vote budget
// for the trailing window.
type RateLimitedError struct {
	RetryAt time.Time
}

func (e *RateLimitedError) Error() string {
	return "rate limited until " + e.RetryAt.Format(time.RFC3339)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// IsRejection reports whether err is an expected voter-facing outcome
// rather than a failure of the system.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAlreadyVoted) || errors.Is(err, ErrRateLimited)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
