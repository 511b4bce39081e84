// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Socket event names
const (
	EventJoinPoll    = "join-poll"
	EventLeavePoll   = "leave-poll"
	EventPollUpdated = "poll-updated"
	EventViewerCount = "viewer-count"
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type SubmitVoteRequest struct {
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex"`
	Fingerprint string `json:"fingerprint"`
}

// Response types

type PollResponse struct {
	Success bool `json:"success"`
	Poll    Poll `json:"poll"`
}

type SubmitVoteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Poll    PollSnapshot `json:"poll"`
}

type VoteRejectedResponse struct {
	Error               string `json:"error"`
	AlreadyVoted        bool   `json:"alreadyVoted"`
	PreviousOptionIndex *int   `json:"previousOptionIndex,omitempty"`
}

type CheckVoteResponse struct {
	HasVoted    bool `json:"hasVoted"`
	OptionIndex *int `json:"optionIndex"`
}

// Domain types

type Option struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	PollID     string    `json:"pollId"`
	Question   string    `json:"question"`
	Options    []Option  `json:"options"`
	TotalVotes int       `json:"totalVotes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PollSnapshot is the tally view pushed to viewers in poll-updated events
type PollSnapshot struct {
	PollID     string   `json:"pollId"`
	Question   string   `json:"question"`
	Options    []Option `json:"options"`
	TotalVotes int      `json:"totalVotes"`
}

// Snapshot returns the tally view of the poll
func (p Poll) Snapshot() PollSnapshot {
	options := make([]Option, len(p.Options))
	copy(options, p.Options)
	return PollSnapshot{
		PollID:     p.PollID,
		Question:   p.Question,
		Options:    options,
		TotalVotes: p.TotalVotes,
	}
}

type Vote struct {
	ID          string    `json:"id"`
	PollID      string    `json:"pollId"`
	OptionIndex int       `json:"optionIndex"`
	VoterToken  string    `json:"-"` // Never expose in JSON
	Fingerprint string    `json:"-"` // Never expose in JSON
	Address     string    `json:"-"` // Never expose in JSON
	CreatedAt   time.Time `json:"createdAt"`
}

// Socket types

// Event is a named frame on the real-time channel
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ViewerCount struct {
	PollID string `json:"pollId"`
	Count  int    `json:"count"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
