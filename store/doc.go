// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the SQL-backed vote ledger and tally store.

Polls and options are created once and afterwards only their counters
change. Votes are append-only. RecordVote is the single write used by vote
admission: it appends the ledger record and increments the option and poll
counters inside one transaction, so a reader never sees one without the
other.

Lookups used by admission:

	s.FindVote(ctx, pollID, store.SignalCookie, token)
	s.CountVotes(ctx, store.VoteFilter{Address: addr, Since: cutoff})
	s.EarliestVote(ctx, store.VoteFilter{Address: addr, Since: cutoff})

Missing rows are reported as ErrNotFound.
*/
package store
