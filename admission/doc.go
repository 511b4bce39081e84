// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package admission decides whether a vote is accepted.

# Policy

Checks run from the strongest identity signal to the weakest and the first
match rejects the vote:

	cookie token  → AlreadyVoted, previous option disclosed
	fingerprint   → AlreadyVoted, previous option disclosed
	address       → AlreadyVoted, no option (StrictAddress only)
	address rate  → RateLimited (RateLimit votes per RateWindow, any poll)

An accepted vote is written with store.RecordVote, which appends the ledger
record and bumps the tally in one transaction, and the new tally is handed
to the Publisher.

# Serialization

Each poll has its own lock, held from the first replay check until the
tally has been published. Two requests for the same poll can therefore
never both pass the replay checks. Waiting for the lock honours the request
context, and the lock is always released on return.

# Errors

AlreadyVoted and RateLimited are expected outcomes; IsRejection tells them
apart from validation errors and ErrStorageUnavailable:

	res, err := admitter.Admit(ctx, pollID, index, signals)
	var already *admission.AlreadyVotedError
	switch {
	case errors.As(err, &already):
		// render "you already voted"
	case errors.Is(err, admission.ErrRateLimited):
		// ask the voter to come back later
	}
*/
package admission
