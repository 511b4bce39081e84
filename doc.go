// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll runs single-choice polls with live results. Viewers watching a poll
over a WebSocket see the tally and the number of other viewers change as it
happens, and each voter gets one vote per poll.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=livepoll.db ADDRESS_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --address-salt ...

A .env file in the working directory is loaded first; variables already set
in the environment win.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - ADDRESS_SALT (--address-salt): Secret for hashing voter addresses

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CLIENT_URL (--client-url): Frontend origin for CORS and WebSocket upgrades
  - STRICT_ADDRESS_VOTES (--strict-address): One vote per poll per address (default: true)
  - REQUIRE_FINGERPRINT (--require-fingerprint): Reject votes without a fingerprint (default: true)
  - RATE_LIMIT / RATE_WINDOW: Votes per address across all polls (default: 10 per 1h)
  - STORAGE_TIMEOUT: Per-request storage deadline (default: 5s)
  - SEND_BUFFER: Outbound frames queued per socket (default: 32)

# Architecture

  - handlers: HTTP and WebSocket handlers (polls, voting, socket)
  - router: Route definitions and engine wiring
  - admission: Vote admission policy and per-poll serialization
  - presence: Viewer rooms and counts
  - broadcast: Outbound queues and room fan-out
  - identity: Voter identity signals
  - store: Polls, tallies, and the vote ledger
  - middleware: CORS, logging, JSON helpers
  - models: Request/response and domain types
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
