// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity resolves the signals used to recognize a repeat voter.

# Signals

Three signals are collected per vote request, strongest first:

  - cookie token: server-issued, minted with NewToken when absent
  - fingerprint: client-supplied, unauthenticated, spoofable
  - source address: first X-Forwarded-For entry, else the peer address

	r := identity.NewResolver(cfg.AddressSalt)
	signals := r.Resolve(cookie, fingerprint, middleware.GetClientIP(req))

Resolve always returns a populated Signals. An empty address becomes
UnknownAddress. When the resolver has a salt the address is replaced by
HashAddress, so raw addresses never reach the vote ledger.
*/
package identity
