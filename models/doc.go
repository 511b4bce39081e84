// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain, and socket event types.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options
  - SubmitVoteRequest: pollId, optionIndex, fingerprint

# Response Types

  - PollResponse: a poll with its current tally
  - SubmitVoteResponse: the admitted tally snapshot
  - VoteRejectedResponse: already-voted details (previousOptionIndex when known)
  - CheckVoteResponse: hasVoted and the chosen option
  - ErrorResponse: standard error format

# Domain Types

Poll owns an ordered slice of Option; the index of an option in that slice
is its public choice identifier. TotalVotes always equals the sum of the
option counters.

Vote is an immutable ledger record. VoterToken, Fingerprint, and Address
are never serialized.

# Socket Events

Every frame on the real-time channel is an Event:

	{"event": "join-poll", "data": "<poll id>"}
	{"event": "poll-updated", "data": {"pollId": ..., "options": [...], "totalVotes": 3}}
	{"event": "viewer-count", "data": {"pollId": ..., "count": 2}}
*/
package models
