// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/presence"
)

const socketWriteTimeout = 5 * time.Second

// SocketHandler serves the real-time channel. Each connection gets an
// outbound queue in the hub and a membership record in the tracker.
type SocketHandler struct {
	hub     *broadcast.Hub
	tracker *presence.Tracker
	opts    *websocket.AcceptOptions
}

func NewSocketHandler(hub *broadcast.Hub, tracker *presence.Tracker, cfg cliparse.Config) *SocketHandler {
	return &SocketHandler{
		hub:     hub,
		tracker: tracker,
		opts:    acceptOptions(cfg.AllowedOrigin),
	}
}

// acceptOptions limits upgrades to the configured frontend origin.
// Without one any origin may connect.
func acceptOptions(allowedOrigin string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	allowedOrigin = strings.TrimSpace(allowedOrigin)
	if allowedOrigin == "" {
		opts.InsecureSkipVerify = true
		return opts
	}
	if u, err := url.Parse(allowedOrigin); err == nil && u.Host != "" {
		opts.OriginPatterns = []string{u.Host}
	} else {
		opts.OriginPatterns = []string{allowedOrigin}
	}
	return opts
}

// Serve handles GET /ws
func (h *SocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	connID := uuid.NewString()
	client, err := h.hub.Register(connID)
	if err != nil {
		slog.Error("failed to register connection", "error", err, "conn_id", connID)
		conn.Close(websocket.StatusInternalError, "register failed")
		return
	}
	if err := h.tracker.Connect(connID); err != nil {
		slog.Error("failed to track connection", "error", err, "conn_id", connID)
		h.hub.Unregister(connID)
		conn.Close(websocket.StatusInternalError, "register failed")
		return
	}

	slog.Info("viewer connected", "conn_id", connID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		writeFrames(ctx, conn, client)
	}()

	// Runs however the read loop ends
	defer func() {
		cancel()
		left := h.tracker.Disconnect(connID)
		h.hub.Unregister(connID)
		wg.Wait()
		conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("viewer disconnected", "conn_id", connID, "polls_left", len(left), "frames_dropped", client.Dropped())
	}()

	h.readEvents(ctx, conn, connID)
}

func (h *SocketHandler) readEvents(ctx context.Context, conn *websocket.Conn, connID string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("websocket read ended", "conn_id", connID, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg models.Event
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed frame", "conn_id", connID, "error", err)
			continue
		}
		pollID := eventPollID(msg.Data)
		if pollID == "" {
			slog.Debug("ignoring event without poll id", "conn_id", connID, "event", msg.Event)
			continue
		}

		switch msg.Event {
		case models.EventJoinPoll:
			if _, err := h.tracker.Join(connID, pollID); err != nil {
				slog.Warn("join failed", "conn_id", connID, "poll_id", pollID, "error", err)
				return
			}
		case models.EventLeavePoll:
			if _, err := h.tracker.Leave(connID, pollID); err != nil {
				slog.Warn("leave failed", "conn_id", connID, "poll_id", pollID, "error", err)
				return
			}
		default:
			slog.Debug("ignoring unknown event", "conn_id", connID, "event", msg.Event)
		}
	}
}

// writeFrames drains the client's queue until it is closed or a write fails
func writeFrames(ctx context.Context, conn *websocket.Conn, client *broadcast.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-client.Frames():
			if !ok {
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, socketWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancelWrite()
			if err != nil {
				slog.Debug("websocket write failed", "conn_id", client.ID, "error", err)
				return
			}
		}
	}
}

// eventPollID accepts either a bare poll id string or {"pollId": "..."}
func eventPollID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		PollID string `json:"pollId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.PollID)
	}
	return ""
}
