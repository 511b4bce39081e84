// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Call LoadEnvFile first to pick up a local .env file:

	_ = cliparse.LoadEnvFile(".env")

# CLI Flags

	-p, --port               Server port (default: 3318)
	-d, --database           Database URL (required)
	-t, --database-type      sqlite or postgres (default: sqlite)
	--client-url             Allowed browser origin
	--address-salt           Source address hashing salt (required)
	--strict-address         One vote per poll per address (default: true)
	--require-fingerprint    Reject votes without a fingerprint (default: true)
	--rate-limit             Votes per address per window (default: 10)
	--rate-window            Rate limit window (default: 1h)
	--storage-timeout        Per-request storage timeout (default: 5s)
	--send-buffer            Queued frames per socket (default: 32)

# Environment Variables

Flags fall back to environment variables:

	PORT                 → -p
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t
	CLIENT_URL           → --client-url
	ADDRESS_SALT         → --address-salt
	STRICT_ADDRESS_VOTES → --strict-address
	REQUIRE_FINGERPRINT  → --require-fingerprint
	RATE_LIMIT           → --rate-limit
	RATE_WINDOW          → --rate-window
	STORAGE_TIMEOUT      → --storage-timeout
	SEND_BUFFER          → --send-buffer

CLI flags take precedence over environment variables.
*/
package cliparse
