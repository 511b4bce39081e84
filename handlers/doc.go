// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP and WebSocket handlers for the livepoll API.

# Handler Types

  - PollHandler: Poll creation, lookup, and live viewer counts
  - VotingHandler: Vote submission and vote status checks
  - SocketHandler: The real-time channel at GET /ws

Handlers are created with the engine pieces they use:

	pollHandler := handlers.NewPollHandler(store, tracker, cfg)
	votingHandler := handlers.NewVotingHandler(admitter, resolver, cfg)
	socketHandler := handlers.NewSocketHandler(hub, tracker, cfg)

# Voting

A vote is identified by three signals: the voterId cookie (minted on the
first vote, HttpOnly, one year), the client fingerprint from the request
body, and the client address. Admission outcomes map to responses:

	200 accepted, body carries the new tally
	403 already voted (previousOptionIndex unless matched by address)
	429 rate limited, Retry-After set
	400 bad input, 404 unknown poll, 503 storage unavailable

Storage calls are bounded by the configured storage timeout.

# Real-time Channel

Frames are JSON objects {"event": ..., "data": ...}. Clients send
join-poll and leave-poll with the poll id as data; the server pushes
poll-updated (tally snapshot) and viewer-count ({pollId, count}).

Each connection has a reader (the handler goroutine) and a writer that
drains the connection's hub queue. When either ends, the connection
leaves every room it joined and its queue is released.
*/
package handlers
