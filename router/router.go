// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/store"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Engine: the hub delivers frames, the tracker owns rooms, and the
	// broadcaster addresses a room's members through the hub.
	ledger := store.New(db)
	hub := broadcast.NewHub(cfg.SendBuffer)
	tracker := presence.NewTracker(hub)
	broadcaster := broadcast.New(hub, tracker)
	admitter := admission.New(ledger, broadcaster, admission.Policy{
		StrictAddress:      cfg.StrictAddress,
		RequireFingerprint: cfg.RequireFingerprint,
		RateLimit:          cfg.RateLimit,
		RateWindow:         cfg.RateWindow,
	})

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(ledger, tracker, cfg)
	votingHandler := handlers.NewVotingHandler(admitter, identity.NewResolver(cfg.AddressSalt), cfg)
	socketHandler := handlers.NewSocketHandler(hub, tracker, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /api/polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /api/polls/{pollId}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /api/polls/{pollId}/viewers", middleware.WithLogging(pollHandler.GetViewers))

	// Voting
	mux.HandleFunc("POST /api/votes", middleware.WithLogging(votingHandler.SubmitVote))
	mux.HandleFunc("GET /api/votes/check/{pollId}", middleware.WithLogging(votingHandler.CheckVote))

	// Real-time channel
	mux.HandleFunc("GET /ws", middleware.WithLogging(socketHandler.Serve))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return mux
}
