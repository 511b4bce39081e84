// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package broadcast delivers poll events to live connections.
//
// Hub owns one bounded outbound queue per connection and Broadcaster
// resolves a poll's room to the connections to send to. Sending never
// blocks: a full queue loses its oldest frame instead.
package broadcast
