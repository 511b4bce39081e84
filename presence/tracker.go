// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package presence

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

var (
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrClosed              = errors.New("connection closed")
)

// Notifier delivers an event to a set of connections. Send must not block.
type Notifier interface {
	Send(connIDs []string, event string, data any)
}

// connection is the ConnectionMembership of one live connection
type connection struct {
	mu     sync.Mutex
	polls  map[string]struct{}
	closed bool
}

// room is the RoomMembership of one poll. mu serializes every membership
// change and the viewer-count event it emits.
type room struct {
	mu      sync.Mutex
	members map[string]struct{}

	refs int // guarded by Tracker.mu
}

// Tracker maintains which connections are viewing which polls.
//
// Lock order is room.mu, then connection.mu. Tracker.mu is never held
// while acquiring either.
type Tracker struct {
	notify Notifier

	mu    sync.Mutex
	conns map[string]*connection
	rooms map[string]*room
}

func NewTracker(notify Notifier) *Tracker {
	return &Tracker{
		notify: notify,
		conns:  make(map[string]*connection),
		rooms:  make(map[string]*room),
	}
}

// Connect registers a new connection with no joined polls
func (t *Tracker) Connect(connID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.conns[connID]; ok {
		return ErrDuplicateConnection
	}
	t.conns[connID] = &connection{polls: make(map[string]struct{})}
	return nil
}

// Join adds the connection to the poll's room and announces the new viewer
// count to the room. Joining a room the connection is already in is a
// no-op. Reports whether membership changed.
func (t *Tracker) Join(connID, pollID string) (bool, error) {
	c, err := t.lookup(connID)
	if err != nil {
		return false, err
	}

	r := t.acquire(pollID)
	defer t.release(pollID, r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if _, ok := c.polls[pollID]; ok {
		c.mu.Unlock()
		return false, nil
	}
	c.polls[pollID] = struct{}{}
	c.mu.Unlock()

	r.members[connID] = struct{}{}
	t.emit(pollID, r)
	return true, nil
}

// Leave removes the connection from the poll's room and announces the new
// viewer count. Leaving a room the connection is not in is a no-op.
func (t *Tracker) Leave(connID, pollID string) (bool, error) {
	c, err := t.lookup(connID)
	if err != nil {
		return false, err
	}

	r := t.acquire(pollID)
	defer t.release(pollID, r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if _, ok := c.polls[pollID]; !ok {
		c.mu.Unlock()
		return false, nil
	}
	delete(c.polls, pollID)
	c.mu.Unlock()

	delete(r.members, connID)
	t.emit(pollID, r)
	return true, nil
}

// Disconnect closes the connection, removes it from every room it joined,
// and announces each affected room's new count. It returns the polls that
// were left. Unknown or already closed connections are ignored.
func (t *Tracker) Disconnect(connID string) []string {
	t.mu.Lock()
	c, ok := t.conns[connID]
	delete(t.conns, connID)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	// Once closed, no Join can add a poll behind this snapshot.
	c.mu.Lock()
	c.closed = true
	polls := make([]string, 0, len(c.polls))
	for pollID := range c.polls {
		polls = append(polls, pollID)
	}
	c.mu.Unlock()
	sort.Strings(polls)

	left := polls[:0]
	for _, pollID := range polls {
		if t.removeMember(c, connID, pollID) {
			left = append(left, pollID)
		}
	}

	slog.Debug("connection disconnected", "conn_id", connID, "rooms_left", len(left))
	return left
}

func (t *Tracker) removeMember(c *connection, connID, pollID string) bool {
	r := t.acquire(pollID)
	defer t.release(pollID, r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c.mu.Lock()
	delete(c.polls, pollID)
	c.mu.Unlock()

	if _, ok := r.members[connID]; !ok {
		return false
	}
	delete(r.members, connID)
	t.emit(pollID, r)
	return true
}

// Count returns the number of connections viewing the poll
func (t *Tracker) Count(pollID string) int {
	r := t.acquire(pollID)
	defer t.release(pollID, r)

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Members returns the connections currently viewing the poll
func (t *Tracker) Members(pollID string) []string {
	r := t.acquire(pollID)
	defer t.release(pollID, r)

	r.mu.Lock()
	defer r.mu.Unlock()
	return memberList(r)
}

// Rooms returns the polls the connection has joined, sorted
func (t *Tracker) Rooms(connID string) []string {
	c, err := t.lookup(connID)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	polls := make([]string, 0, len(c.polls))
	for pollID := range c.polls {
		polls = append(polls, pollID)
	}
	sort.Strings(polls)
	return polls
}

// emit must be called with r.mu held
func (t *Tracker) emit(pollID string, r *room) {
	members := memberList(r)
	if t.notify == nil || len(members) == 0 {
		return
	}
	t.notify.Send(members, models.EventViewerCount, models.ViewerCount{
		PollID: pollID,
		Count:  len(members),
	})
}

func memberList(r *room) []string {
	members := make([]string, 0, len(r.members))
	for connID := range r.members {
		members = append(members, connID)
	}
	sort.Strings(members)
	return members
}

func (t *Tracker) lookup(connID string) (*connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conns[connID]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return c, nil
}

// acquire pins the room for pollID so it is not discarded while in use
func (t *Tracker) acquire(pollID string) *room {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.rooms[pollID]
	if !ok {
		r = &room{members: make(map[string]struct{})}
		t.rooms[pollID] = r
	}
	r.refs++
	return r
}

// release drops the pin and discards the room once it is unused and empty
func (t *Tracker) release(pollID string, r *room) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r.refs--
	if r.refs == 0 && len(r.members) == 0 {
		delete(t.rooms, pollID)
	}
}
