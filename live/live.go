// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bus2ride/livepolls/models"
	"gopkg.in/olahol/melody.v1"
)

const pollKey = "poll_id"

// Hub pushes fresh poll results to widgets watching a poll over a websocket.
type Hub struct {
	m *melody.Melody
}

func NewHub() *Hub {
	m := melody.New()
	// Widgets are embedded on other sites.
	m.Upgrader.CheckOrigin = func(r *http.Request) bool { return true }

	m.HandleConnect(func(s *melody.Session) {
		id, _ := s.Get(pollKey)
		slog.Debug("live watcher connected", "poll_id", id)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		id, _ := s.Get(pollKey)
		slog.Debug("live watcher disconnected", "poll_id", id)
	})
	m.HandleError(func(s *melody.Session, err error) {
		slog.Debug("live watcher error", "error", err)
	})

	return &Hub{m: m}
}

// Serve upgrades the request and subscribes it to pollID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, pollID string) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{pollKey: pollID})
}

// Publish sends results to every watcher of the poll.
func (h *Hub) Publish(results models.PollResults) error {
	msg, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(pollKey)
		return ok && id == results.PollID
	})
}

// Close disconnects all watchers.
func (h *Hub) Close() error {
	return h.m.Close()
}
