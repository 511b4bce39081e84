// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"github.com/danielhkuo/livepoll/models"
)

// Rooms reports the connections currently viewing a poll
type Rooms interface {
	Members(pollID string) []string
}

// Broadcaster fans poll events out to the poll's room
type Broadcaster struct {
	hub   *Hub
	rooms Rooms
}

func New(hub *Hub, rooms Rooms) *Broadcaster {
	return &Broadcaster{hub: hub, rooms: rooms}
}

// BroadcastTally sends a poll-updated event to every current viewer
func (b *Broadcaster) BroadcastTally(pollID string, snapshot models.PollSnapshot) {
	b.hub.Send(b.rooms.Members(pollID), models.EventPollUpdated, snapshot)
}

// BroadcastViewerCount sends a viewer-count event to every current viewer
func (b *Broadcaster) BroadcastViewerCount(pollID string, count int) {
	b.hub.Send(b.rooms.Members(pollID), models.EventViewerCount, models.ViewerCount{
		PollID: pollID,
		Count:  count,
	})
}
