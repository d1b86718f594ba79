// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/live"
	"github.com/bus2ride/livepolls/middleware"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	hub *live.Hub
}

// NewResultsHandler creates the results handlers. hub may be nil, in which
// case the websocket endpoint is unavailable.
func NewResultsHandler(db *sql.DB, cfg cliparse.Config, hub *live.Hub) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg, hub: hub}
}

// GetResults handles GET /polls/{id}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	results, err := pollResults(r.Context(), h.db, pollID)
	if errors.Is(err, ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute results", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// Live handles GET /polls/{id}/live, a websocket that receives the poll's
// results after every vote.
func (h *ResultsHandler) Live(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if h.hub == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Live results are disabled")
		return
	}

	var exists int
	err := h.db.QueryRowContext(r.Context(), `SELECT 1 FROM poll WHERE id = $1`, pollID).Scan(&exists)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := h.hub.Serve(w, r, pollID); err != nil {
		slog.Warn("live connection ended", "error", err, "poll_id", pollID)
	}
}
