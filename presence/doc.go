// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package presence tracks which live connections are viewing which polls.

Each connection moves Connected → Closed and never back. While connected it
may join and leave poll rooms any number of times:

	tracker.Connect(connID)
	tracker.Join(connID, pollID)   // viewer-count event to the room
	tracker.Leave(connID, pollID)  // viewer-count event to the room
	tracker.Disconnect(connID)     // one event per room it was in

Join and Leave are no-ops, with no event, when membership would not change.
The viewer count of a poll is the size of its room.

Membership changes to one room and the events they emit are serialized by
that room's lock, so every member sees the counts in the order the changes
were applied. Different rooms never wait on each other.
*/
package presence
