// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bus2ride/livepolls/auth"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/db"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/models"
	"github.com/google/uuid"
)

// Publisher receives fresh results after every recorded vote.
type Publisher interface {
	Publish(results models.PollResults) error
}

type VotingHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	live Publisher
}

// NewVotingHandler creates the vote and view handlers. live may be nil.
func NewVotingHandler(db *sql.DB, cfg cliparse.Config, live Publisher) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, live: live}
}

// IssueVoterToken handles POST /voter-tokens. Widgets call it once per
// browser and send the token back as X-Voter-Token.
func (h *VotingHandler) IssueVoterToken(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue voter token")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	middleware.JSONResponse(w, http.StatusCreated, models.VoterTokenResponse{VoterToken: token})
}

// CastVote handles POST /polls/{id}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	h.vote(w, r, pollID, req.OptionID)
}

// IncrementVoteRPC handles POST /rpc/increment_poll_vote1
func (h *VotingHandler) IncrementVoteRPC(w http.ResponseWriter, r *http.Request) {
	var req models.IncrementVoteRPC
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "p_option_id is required")
		return
	}

	var pollID string
	err := h.db.QueryRowContext(r.Context(), `SELECT poll_id FROM poll_option WHERE id = $1`, req.OptionID).Scan(&pollID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	}
	if err != nil {
		slog.Error("failed to query option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.vote(w, r, pollID, req.OptionID)
}

func (h *VotingHandler) vote(w http.ResponseWriter, r *http.Request, pollID, optionID string) {
	token := r.Header.Get("X-Voter-Token")
	if token != "" {
		if err := auth.ValidateVoterToken(token); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid X-Voter-Token")
			return
		}
	}
	voterHash := auth.VoterHash(token, middleware.GetClientIP(r), r.UserAgent(), h.cfg.VoterSalt)

	err := h.recordVote(r.Context(), pollID, optionID, voterHash)
	switch {
	case errors.Is(err, ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	case errors.Is(err, ErrOptionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	case errors.Is(err, ErrOptionNotInPoll):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Option does not belong to this poll")
		return
	case errors.Is(err, ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusConflict, "Already voted on this poll")
		return
	case err != nil:
		slog.Error("failed to record vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote recorded", "poll_id", pollID, "option_id", optionID)

	results, err := pollResults(r.Context(), h.db, pollID)
	if err != nil {
		// The vote is committed; the client keeps its optimistic count.
		slog.Error("failed to load results after vote", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Vote recorded but results unavailable")
		return
	}

	if h.live != nil {
		if err := h.live.Publish(results); err != nil {
			slog.Warn("failed to publish live results", "error", err, "poll_id", pollID)
		}
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		PollID:   pollID,
		OptionID: optionID,
		Results:  results,
	})
}

// recordVote logs the vote and bumps the option counter in one transaction.
// A second vote from the same fingerprint on the same poll is
// ErrAlreadyVoted.
func (h *VotingHandler) recordVote(ctx context.Context, pollID, optionID, voterHash string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM poll WHERE id = $1`, pollID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query poll: %w", err)
	}

	var optionPoll string
	err = tx.QueryRowContext(ctx, `SELECT poll_id FROM poll_option WHERE id = $1`, optionID).Scan(&optionPoll)
	if err == sql.ErrNoRows {
		return ErrOptionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query option: %w", err)
	}
	if optionPoll != pollID {
		return ErrOptionNotInPoll
	}

	// UNIQUE (poll_id, voter_hash) rejects double submission
	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll_vote (id, poll_id, option_id, voter_hash, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), pollID, optionID, voterHash, time.Now().UTC())
	if db.IsUniqueViolation(err) {
		return ErrAlreadyVoted
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE poll_option SET vote_count = vote_count + 1 WHERE id = $1
	`, optionID); err != nil {
		return fmt.Errorf("failed to increment vote count: %w", err)
	}

	return tx.Commit()
}

// RecordView handles POST /polls/{id}/views
func (h *VotingHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}
	h.view(w, r, pollID)
}

// IncrementViewRPC handles POST /rpc/increment_poll_view
func (h *VotingHandler) IncrementViewRPC(w http.ResponseWriter, r *http.Request) {
	var req models.IncrementViewRPC
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.PollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "p_poll_id is required")
		return
	}
	h.view(w, r, req.PollID)
}

func (h *VotingHandler) view(w http.ResponseWriter, r *http.Request, pollID string) {
	ctx := r.Context()

	res, err := h.db.ExecContext(ctx, `UPDATE poll SET view_count = view_count + 1 WHERE id = $1`, pollID)
	if err != nil {
		slog.Error("failed to increment view count", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	resp := models.ViewResponse{PollID: pollID}
	if err := h.db.QueryRowContext(ctx, `SELECT view_count FROM poll WHERE id = $1`, pollID).Scan(&resp.ViewCount); err != nil {
		slog.Error("failed to read view count", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
