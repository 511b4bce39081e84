// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/identity"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/testutil"
)

// testEngine wires the handlers to a fresh in-memory database
type testEngine struct {
	db      *sql.DB
	cfg     cliparse.Config
	hub     *broadcast.Hub
	tracker *presence.Tracker
	polls   *PollHandler
	voting  *VotingHandler
	socket  *SocketHandler
}

func newTestEngine(t *testing.T, cfg cliparse.Config) *testEngine {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	ledger := store.New(conn)
	hub := broadcast.NewHub(cfg.SendBuffer)
	tracker := presence.NewTracker(hub)
	admitter := admission.New(ledger, broadcast.New(hub, tracker), admission.Policy{
		StrictAddress:      cfg.StrictAddress,
		RequireFingerprint: cfg.RequireFingerprint,
		RateLimit:          cfg.RateLimit,
		RateWindow:         cfg.RateWindow,
	})

	return &testEngine{
		db:      conn,
		cfg:     cfg,
		hub:     hub,
		tracker: tracker,
		polls:   NewPollHandler(ledger, tracker, cfg),
		voting:  NewVotingHandler(admitter, identity.NewResolver(cfg.AddressSalt), cfg),
		socket:  NewSocketHandler(hub, tracker, cfg),
	}
}

func TestCreatePoll(t *testing.T) {
	e := newTestEngine(t, testutil.GetTestConfig())

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.PollResponse)
	}{
		{
			name: "valid poll creation",
			requestBody: models.CreatePollRequest{
				Question: "Cats or dogs?",
				Options:  []string{"Cats", "Dogs"},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.PollResponse) {
				if !resp.Success {
					t.Error("Expected success to be true")
				}
				if resp.Poll.PollID == "" {
					t.Error("Expected non-empty pollId")
				}
				if resp.Poll.TotalVotes != 0 {
					t.Errorf("Expected 0 total votes, got %d", resp.Poll.TotalVotes)
				}

				// Verify poll was stored with its options
				var count int
				err := e.db.QueryRow("SELECT COUNT(*) FROM poll_option WHERE poll_id = $1", resp.Poll.PollID).Scan(&count)
				if err != nil {
					t.Fatalf("Failed to query options: %v", err)
				}
				if count != 2 {
					t.Errorf("Expected 2 stored options, got %d", count)
				}
			},
		},
		{
			name: "question and options are trimmed, blanks dropped",
			requestBody: models.CreatePollRequest{
				Question: "  Best editor?  ",
				Options:  []string{" vim ", "", "   ", "emacs"},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.PollResponse) {
				if resp.Poll.Question != "Best editor?" {
					t.Errorf("Expected trimmed question, got %q", resp.Poll.Question)
				}
				if len(resp.Poll.Options) != 2 {
					t.Fatalf("Expected 2 options, got %d", len(resp.Poll.Options))
				}
				if resp.Poll.Options[0].Text != "vim" || resp.Poll.Options[1].Text != "emacs" {
					t.Errorf("Unexpected options: %+v", resp.Poll.Options)
				}
			},
		},
		{
			name:           "missing question",
			requestBody:    models.CreatePollRequest{Options: []string{"A", "B"}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "blank question",
			requestBody:    models.CreatePollRequest{Question: "   ", Options: []string{"A", "B"}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "one option",
			requestBody:    models.CreatePollRequest{Question: "Q", Options: []string{"A"}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "only one valid option",
			requestBody:    models.CreatePollRequest{Question: "Q", Options: []string{"A", "  "}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/polls", tt.requestBody, nil)
			w := httptest.NewRecorder()

			e.polls.CreatePoll(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.checkResponse != nil && w.Code == http.StatusCreated {
				var resp models.PollResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestGetPoll(t *testing.T) {
	e := newTestEngine(t, testutil.GetTestConfig())
	poll := testutil.CreateTestPoll(t, e.db, "Cats or dogs?")

	tests := []struct {
		name           string
		pollID         string
		expectedStatus int
	}{
		{"existing poll", poll.PollID, http.StatusOK},
		{"unknown poll", "no-such-poll", http.StatusNotFound},
		{"missing id", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/polls/"+tt.pollID, nil)
			req.SetPathValue("pollId", tt.pollID)
			w := httptest.NewRecorder()

			e.polls.GetPoll(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if w.Code == http.StatusOK {
				var resp models.PollResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Poll.Question != "Cats or dogs?" {
					t.Errorf("Expected question 'Cats or dogs?', got %q", resp.Poll.Question)
				}
				if len(resp.Poll.Options) != 2 || resp.Poll.Options[0].Text != "Cats" {
					t.Errorf("Unexpected options: %+v", resp.Poll.Options)
				}
			}
		})
	}
}

func TestGetViewers(t *testing.T) {
	e := newTestEngine(t, testutil.GetTestConfig())

	for _, id := range []string{"c1", "c2"} {
		if err := e.tracker.Connect(id); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		if _, err := e.tracker.Join(id, "poll-1"); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}

	tests := []struct {
		pollID   string
		expected int
	}{
		{"poll-1", 2},
		{"poll-2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.pollID, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/polls/"+tt.pollID+"/viewers", nil)
			req.SetPathValue("pollId", tt.pollID)
			w := httptest.NewRecorder()

			e.polls.GetViewers(w, req)

			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.ViewerCount
			testutil.AssertJSON(t, w, &resp)
			if resp.PollID != tt.pollID || resp.Count != tt.expected {
				t.Errorf("Expected %s=%d, got %s=%d", tt.pollID, tt.expected, resp.PollID, resp.Count)
			}
		})
	}
}
