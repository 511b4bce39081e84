// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter builds the vote engine and returns a configured http.ServeMux:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Polls:

	POST /api/polls                  - Create poll
	GET  /api/polls/{pollId}         - Poll with current tally
	GET  /api/polls/{pollId}/viewers - Live viewer count

Voting (identified by the voterId cookie, fingerprint, and address):

	POST /api/votes                  - Cast a vote
	GET  /api/votes/check/{pollId}   - Has this voter voted?

Real-time:

	GET /ws - WebSocket; join-poll/leave-poll in, poll-updated/viewer-count out

# Wiring

The engine is assembled once per router:

	hub := broadcast.NewHub(cfg.SendBuffer)
	tracker := presence.NewTracker(hub)
	broadcaster := broadcast.New(hub, tracker)
	admitter := admission.New(store.New(db), broadcaster, policy)

Every handler shares the same hub and tracker, so a vote admitted over HTTP
reaches every socket in the poll's room.
*/
package router
