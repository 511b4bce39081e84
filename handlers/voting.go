// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

// VoterCookie carries the voter's opaque token between requests
const VoterCookie = "voterId"

const voterCookieMaxAge = 365 * 24 * 60 * 60

type VotingHandler struct {
	admitter *admission.Admitter
	resolver identity.Resolver
	cfg      cliparse.Config
}

func NewVotingHandler(admitter *admission.Admitter, resolver identity.Resolver, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{admitter: admitter, resolver: resolver, cfg: cfg}
}

// SubmitVote handles POST /api/votes
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.PollID) == "" || req.OptionIndex == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll ID and option index are required")
		return
	}

	// The cookie is set before admission so that a rejected first vote
	// still leaves the browser with a stable token.
	token := voterToken(r)
	if token == "" {
		token = identity.NewToken()
		http.SetCookie(w, &http.Cookie{
			Name:     VoterCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   voterCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	signals := h.resolver.Resolve(token, req.Fingerprint, middleware.GetClientIP(r))

	ctx, cancel := storageContext(r.Context(), h.cfg)
	defer cancel()

	res, err := h.admitter.Admit(ctx, strings.TrimSpace(req.PollID), *req.OptionIndex, signals)
	if err != nil {
		h.writeAdmitError(w, req.PollID, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitVoteResponse{
		Success: true,
		Message: "Vote recorded successfully",
		Poll:    res.Poll,
	})
}

func (h *VotingHandler) writeAdmitError(w http.ResponseWriter, pollID string, err error) {
	var already *admission.AlreadyVotedError
	var limited *admission.RateLimitedError

	switch {
	case errors.As(err, &already):
		slog.Info("vote rejected", "poll_id", pollID, "signal", already.Signal)
		middleware.JSONResponse(w, http.StatusForbidden, models.VoteRejectedResponse{
			Error:               alreadyVotedMessage(already.Signal),
			AlreadyVoted:        true,
			PreviousOptionIndex: already.PreviousOption,
		})

	case errors.As(err, &limited):
		slog.Info("vote rate limited", "poll_id", pollID, "retry_at", limited.RetryAt)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limited.RetryAt)))
		middleware.ErrorResponse(w, http.StatusTooManyRequests,
			"Too many votes from this address. Try again "+humanize.Time(limited.RetryAt))

	case errors.Is(err, admission.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")

	case errors.Is(err, admission.ErrInvalidOption):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid option index")

	case errors.Is(err, admission.ErrMissingIdentitySignal):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Browser fingerprint is required for security")

	default:
		slog.Error("failed to record vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Failed to record vote")
	}
}

// CheckVote handles GET /api/votes/check/{pollId}?fingerprint=
func (h *VotingHandler) CheckVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pollId is required")
		return
	}

	ctx, cancel := storageContext(r.Context(), h.cfg)
	defer cancel()

	fingerprint := strings.TrimSpace(r.URL.Query().Get("fingerprint"))
	hasVoted, index, err := h.admitter.Check(ctx, pollID, voterToken(r), fingerprint)
	if err != nil {
		slog.Error("failed to check vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Failed to check vote status")
		return
	}

	resp := models.CheckVoteResponse{HasVoted: hasVoted}
	if hasVoted {
		resp.OptionIndex = &index
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

func voterToken(r *http.Request) string {
	c, err := r.Cookie(VoterCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func alreadyVotedMessage(signal identity.Kind) string {
	switch signal {
	case identity.KindFingerprint:
		return "You have already voted on this poll from this browser."
	case identity.KindAddress:
		return "This address has already voted on this poll. Each address can only vote once per poll."
	default:
		return "You have already voted on this poll"
	}
}

func retryAfterSeconds(retryAt time.Time) int {
	secs := int(math.Ceil(time.Until(retryAt).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
