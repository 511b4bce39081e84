// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/store"
)

type PollHandler struct {
	store   *store.Store
	tracker *presence.Tracker
	cfg     cliparse.Config
}

func NewPollHandler(s *store.Store, tracker *presence.Tracker, cfg cliparse.Config) *PollHandler {
	return &PollHandler{store: s, tracker: tracker, cfg: cfg}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" || len(req.Options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll must have a question and at least 2 options")
		return
	}

	// Blank options are dropped, the rest keep their order
	options := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll must have at least 2 valid options")
		return
	}

	ctx, cancel := storageContext(r.Context(), h.cfg)
	defer cancel()

	poll, err := h.store.CreatePoll(ctx, question, options)
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", poll.PollID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, models.PollResponse{
		Success: true,
		Poll:    poll,
	})
}

// GetPoll handles GET /api/polls/{pollId}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pollId is required")
		return
	}

	ctx, cancel := storageContext(r.Context(), h.cfg)
	defer cancel()

	poll, err := h.store.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to fetch poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Failed to fetch poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollResponse{
		Success: true,
		Poll:    poll,
	})
}

// GetViewers handles GET /api/polls/{pollId}/viewers
func (h *PollHandler) GetViewers(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pollId is required")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ViewerCount{
		PollID: pollID,
		Count:  h.tracker.Count(pollID),
	})
}

// storageContext bounds a request's storage calls by the configured timeout
func storageContext(parent context.Context, cfg cliparse.Config) (context.Context, context.CancelFunc) {
	if cfg.StorageTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, cfg.StorageTimeout)
}
