// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bus2ride/livepolls/analytics"
	"github.com/bus2ride/livepolls/cache"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/db"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/models"
)

const (
	defaultFilteredLimit = 30
	maxFilteredLimit     = 100

	analyticsCacheKey = "analytics:v1"
	factsCacheKey     = "facts:v1"
	datasetCacheKey   = "dataset:v1"
)

type AnalyticsHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	cache cache.Cache
	now   func() time.Time
}

// NewAnalyticsHandler creates the analytics handlers. A nil cache gets an
// in-memory one.
func NewAnalyticsHandler(db *sql.DB, cfg cliparse.Config, c cache.Cache) *AnalyticsHandler {
	if c == nil {
		c = cache.NewMemory()
	}
	return &AnalyticsHandler{db: db, cfg: cfg, cache: c, now: time.Now}
}

// Get handles GET /analytics
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, h.analytics(r.Context()))
}

// Stats handles GET /analytics/stats
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, analytics.ToStats(h.analytics(r.Context())))
}

// Live handles GET /analytics/live
func (h *AnalyticsHandler) Live(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, analytics.ToLiveStats(h.analytics(r.Context())))
}

// Facts handles GET /analytics/facts
func (h *AnalyticsHandler) Facts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var facts []analytics.Fact
	if h.cached(ctx, factsCacheKey, &facts) {
		middleware.JSONResponse(w, http.StatusOK, facts)
		return
	}

	ds, err := h.dataset(ctx)
	if err != nil {
		slog.Warn("analytics unavailable, serving default facts", "error", err)
		middleware.JSONResponse(w, http.StatusOK, analytics.DefaultFacts())
		return
	}

	facts = analytics.Facts(ds)
	h.store(ctx, factsCacheKey, facts)
	middleware.JSONResponse(w, http.StatusOK, facts)
}

// Filtered handles GET /polls/analytics
func (h *AnalyticsHandler) Filtered(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := analytics.ParseFilter(q.Get("filter"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(q.Get("limit"), defaultFilteredLimit, maxFilteredLimit)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := models.FilteredPollsResponse{
		Filter: string(filter),
		Polls:  []models.PollWithOptions{},
	}

	ds, err := h.dataset(r.Context())
	if err != nil {
		slog.Warn("analytics unavailable, serving empty ranking", "error", err, "filter", filter)
		middleware.JSONResponse(w, http.StatusOK, resp)
		return
	}

	ranked := analytics.Rank(ds, filter, limit, nil)
	ids := make([]string, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}

	polls, err := pollsByID(r.Context(), h.db, ids)
	if err != nil {
		slog.Error("failed to load ranked polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.Polls = polls

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// analytics returns cached analytics, computing them when stale. Failures
// degrade to analytics.Defaults.
func (h *AnalyticsHandler) analytics(ctx context.Context) analytics.PollAnalytics {
	var out analytics.PollAnalytics
	if h.cached(ctx, analyticsCacheKey, &out) {
		return out
	}

	ds, err := h.dataset(ctx)
	if err != nil {
		slog.Warn("analytics unavailable, serving defaults", "error", err)
		return analytics.Defaults
	}

	out = analytics.Compute(ds)
	h.store(ctx, analyticsCacheKey, out)
	return out
}

// dataset returns the cached snapshot, loading it when stale. Rankings and
// aggregates share it, so one load per TTL serves every analytics route.
func (h *AnalyticsHandler) dataset(ctx context.Context) (analytics.Dataset, error) {
	var ds analytics.Dataset
	if h.cached(ctx, datasetCacheKey, &ds) {
		return ds, nil
	}

	ds, err := h.loadDataset(ctx)
	if err != nil {
		return ds, err
	}
	h.store(ctx, datasetCacheKey, ds)
	return ds, nil
}

func (h *AnalyticsHandler) cached(ctx context.Context, key string, v any) bool {
	data, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("analytics cache read failed", "error", err, "key", key)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("analytics cache entry is corrupt", "error", err, "key", key)
		return false
	}
	return true
}

func (h *AnalyticsHandler) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to encode analytics for cache", "error", err, "key", key)
		return
	}
	if err := h.cache.Set(ctx, key, data, h.cfg.AnalyticsTTL); err != nil {
		slog.Warn("analytics cache write failed", "error", err, "key", key)
	}
}

// loadDataset snapshots polls, options and vote log windows.
func (h *AnalyticsHandler) loadDataset(ctx context.Context) (analytics.Dataset, error) {
	now := h.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ds := analytics.Dataset{Now: now}

	// Polls
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, category_slug, location, view_count, created_at
		FROM poll
		ORDER BY id
	`)
	if err != nil {
		return ds, fmt.Errorf("failed to query polls: %w", err)
	}
	index := map[string]int{}
	for rows.Next() {
		var p analytics.PollSample
		var category, location sql.NullString
		var created db.Timestamp
		if err := rows.Scan(&p.ID, &p.Question, &category, &location, &p.Views, &created); err != nil {
			rows.Close()
			return ds, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.Category = category.String
		p.Location = location.String
		p.CreatedAt = created.Time
		index[p.ID] = len(ds.Polls)
		ds.Polls = append(ds.Polls, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return ds, fmt.Errorf("failed to read polls: %w", err)
	}

	// Options
	rows, err = h.db.QueryContext(ctx, `
		SELECT poll_id, label, vote_count, is_correct
		FROM poll_option
		ORDER BY poll_id, ord, id
	`)
	if err != nil {
		return ds, fmt.Errorf("failed to query options: %w", err)
	}
	for rows.Next() {
		var pollID string
		var o analytics.OptionSample
		if err := rows.Scan(&pollID, &o.Label, &o.Votes, &o.Correct); err != nil {
			rows.Close()
			return ds, fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := index[pollID]; ok {
			ds.Polls[i].Options = append(ds.Polls[i].Options, o)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return ds, fmt.Errorf("failed to read options: %w", err)
	}

	// Per-poll vote windows over the last week
	rows, err = h.db.QueryContext(ctx, `
		SELECT poll_id,
		       COALESCE(SUM(CASE WHEN cast_at >= $1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cast_at >= $2 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cast_at >= $3 THEN 1 ELSE 0 END), 0),
		       COUNT(*)
		FROM poll_vote
		WHERE cast_at >= $4
		GROUP BY poll_id
	`, now.Add(-15*time.Minute), now.Add(-time.Hour), midnight, now.AddDate(0, 0, -7))
	if err != nil {
		return ds, fmt.Errorf("failed to query vote windows: %w", err)
	}
	for rows.Next() {
		var pollID string
		var last15, lastHour, today, week int64
		if err := rows.Scan(&pollID, &last15, &lastHour, &today, &week); err != nil {
			rows.Close()
			return ds, fmt.Errorf("failed to scan vote window: %w", err)
		}
		if i, ok := index[pollID]; ok {
			p := &ds.Polls[i]
			p.VotesLast15Min, p.VotesLastHour, p.VotesToday, p.VotesThisWeek = last15, lastHour, today, week
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return ds, fmt.Errorf("failed to read vote windows: %w", err)
	}

	// Site-wide vote log totals
	err = h.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN cast_at >= $1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cast_at >= $2 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN cast_at >= $3 THEN 1 ELSE 0 END), 0)
		FROM poll_vote
	`, now.Add(-5*time.Minute), now.Add(-time.Hour), midnight).Scan(
		&ds.LoggedVotes, &ds.VotesLast5Min, &ds.VotesLast60Min, &ds.VotesToday,
	)
	if err != nil {
		return ds, fmt.Errorf("failed to query vote totals: %w", err)
	}

	return ds, nil
}
