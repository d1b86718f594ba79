// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bus2ride/livepolls/auth"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/db"
	"github.com/bus2ride/livepolls/locations"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/models"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 250
	// Polls fetched before city filtering and truncation.
	listScanLimit = 1000

	maxColumns       = 3
	pollsPerColumn   = 50
	hotCandidates    = 100
	hotPolls         = 8
	minLocationPolls = 6
	locationLimit    = 50
)

var defaultColumns = []string{"party-bus", "limousines", "coach-buses"}

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// ListPolls handles GET /polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q.Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	hideCities, err := parseHideCities(q.Get("hide_cities"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	polls, err := h.generalPolls(r, q.Get("category"), hideCities, limit)
	if err != nil {
		slog.Error("failed to list polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollListResponse{
		Polls:      polls,
		TotalVotes: sumVotes(polls),
	})
}

// generalPolls returns polls by total votes, optionally within a category
// and without city-specific questions.
func (h *PollHandler) generalPolls(r *http.Request, category string, hideCities bool, limit int) ([]models.PollWithOptions, error) {
	query := pollSelect
	args := []any{}
	if category != "" {
		query += ` WHERE p.category_slug = $1 `
		args = append(args, category)
	}
	query += pollGroupBy + ` ORDER BY COALESCE(SUM(o.vote_count), 0) DESC, p.question ASC, p.id ASC LIMIT ` + strconv.Itoa(listScanLimit)

	polls, err := queryPolls(r.Context(), h.db, query, args...)
	if err != nil {
		return nil, err
	}

	if hideCities {
		kept := polls[:0]
		for _, p := range polls {
			if isCitySpecific(p) {
				continue
			}
			kept = append(kept, p)
		}
		polls = kept
	}

	if len(polls) > limit {
		polls = polls[:limit]
	}
	return polls, nil
}

func isCitySpecific(p models.PollWithOptions) bool {
	if p.Location != nil && *p.Location != "" {
		return true
	}
	return locations.MentionsCity(p.Question)
}

// Columns handles GET /polls/columns
func (h *PollHandler) Columns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hideCities, err := parseHideCities(q.Get("hide_cities"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	slugs := splitList(q.Get("categories"))
	if len(slugs) == 0 {
		slugs = defaultColumns
	}
	if len(slugs) > maxColumns {
		slugs = slugs[:maxColumns]
	}

	resp := models.PollColumnsResponse{Columns: make([]models.PollColumn, 0, len(slugs))}
	for _, slug := range slugs {
		polls, err := h.generalPolls(r, slug, hideCities, pollsPerColumn)
		if err != nil {
			slog.Error("failed to load poll column", "category", slug, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		resp.Columns = append(resp.Columns, models.PollColumn{
			Category: slug,
			Title:    locations.Humanize(slug),
			Polls:    polls,
		})
		resp.TotalVotes += sumVotes(polls)
		resp.Questions += len(polls)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// HotPolls handles GET /polls/hot
func (h *PollHandler) HotPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := queryPolls(r.Context(), h.db, pollSelect+pollGroupBy+
		` ORDER BY p.created_at DESC, p.id ASC LIMIT `+strconv.Itoa(hotCandidates))
	if err != nil {
		slog.Error("failed to load hot polls", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].TotalVotes > polls[j].TotalVotes
	})
	if len(polls) > hotPolls {
		polls = polls[:hotPolls]
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollListResponse{
		Polls:      polls,
		TotalVotes: sumVotes(polls),
	})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	poll, err := getPoll(r.Context(), h.db, pollID)
	if errors.Is(err, ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to get poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// LocationPolls handles GET /locations/{city}/polls
func (h *PollHandler) LocationPolls(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.PathValue("city"))
	if city == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "city is required")
		return
	}

	state := r.URL.Query().Get("state")
	cityName := locations.Humanize(city)
	if c, ok := locations.Find(city); ok {
		cityName = c.Name
		if state == "" {
			state = c.State
		}
	}

	needle := strings.ToLower(cityName)
	polls, err := queryPolls(r.Context(), h.db, pollSelect+
		` WHERE LOWER(p.question) LIKE $1 ESCAPE '\' OR LOWER(p.location) = $2 `+pollGroupBy+
		` ORDER BY COALESCE(SUM(o.vote_count), 0) DESC, p.question ASC, p.id ASC LIMIT `+strconv.Itoa(locationLimit),
		"%"+likeEscaper.Replace(needle)+"%", needle)
	if err != nil {
		slog.Error("failed to load location polls", "city", cityName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.LocationPollsResponse{
		City:             cityName,
		State:            state,
		LocationSpecific: true,
	}

	if len(polls) < minLocationPolls {
		general, err := h.generalPolls(r, "", true, locationLimit)
		if err != nil {
			slog.Error("failed to load fallback polls", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if len(general) > 0 {
			polls = general
			resp.LocationSpecific = false
		}
	}

	if resp.LocationSpecific {
		resp.Title = r.URL.Query().Get("title")
		if resp.Title == "" {
			resp.Title = cityName
			if state != "" {
				resp.Title += ", " + state
			}
			resp.Title += " Polls"
		}
		resp.Subtitle = fmt.Sprintf("See what locals in %s are thinking about party transportation.", cityName)
		resp.Badge = "Local Community"
	} else {
		resp.Title = "Transportation Polls"
		resp.Subtitle = "See what the community is thinking about party bus and limo rentals."
		resp.Badge = "Live Community"
	}

	resp.Polls = polls
	resp.TotalVotes = sumVotes(polls)
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ListCategories handles GET /categories
func (h *PollHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `SELECT slug, name FROM poll_category ORDER BY name, slug`)
	if err != nil {
		slog.Error("failed to query categories", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Slug, &c.Name); err != nil {
			slog.Error("failed to scan category", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		c.Title = locations.Humanize(c.Slug)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read categories", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /categories
func (h *PollHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req models.CreateCategoryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Slug = strings.TrimSpace(req.Slug)
	if !validSlug(req.Slug) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slug must be lowercase letters, digits and dashes")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	_, err := h.db.ExecContext(r.Context(), `
		INSERT INTO poll_category (slug, name) VALUES ($1, $2)
	`, req.Slug, req.Name)
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Category already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert category", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	slog.Info("category created", "slug", req.Slug)

	middleware.JSONResponse(w, http.StatusCreated, models.Category{
		Slug:  req.Slug,
		Name:  req.Name,
		Title: locations.Humanize(req.Slug),
	})
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least two options are required")
		return
	}
	for _, label := range req.Options {
		if strings.TrimSpace(label) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "option labels cannot be empty")
			return
		}
	}

	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}
	defer tx.Rollback()

	var category, location *string
	if req.CategorySlug != "" {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM poll_category WHERE slug = $1`, req.CategorySlug).Scan(&exists)
		if err == sql.ErrNoRows {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown category")
			return
		}
		if err != nil {
			slog.Error("failed to query category", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		category = &req.CategorySlug
	}
	if req.Location != "" {
		location = &req.Location
	}

	pollID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, category_slug, location, view_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, pollID, req.Question, category, location, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	optionIDs := make([]string, len(req.Options))
	for i, label := range req.Options {
		optionIDs[i] = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (id, poll_id, label, ord, vote_count, is_correct)
			VALUES ($1, $2, $3, $4, 0, FALSE)
		`, optionIDs[i], pollID, strings.TrimSpace(label), i)
		if err != nil {
			slog.Error("failed to insert option", "error", err, "poll_id", pollID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "options", len(optionIDs))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:    pollID,
		OptionIDs: optionIDs,
	})
}

// AddOption handles POST /polls/{id}/options
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}

	ctx := r.Context()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}
	defer tx.Rollback()

	// Check poll exists and find the next display position
	var nextOrd sql.NullInt64
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM poll WHERE id = $1`, pollID).Scan(&exists)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(ord) + 1 FROM poll_option WHERE poll_id = $1
	`, pollID).Scan(&nextOrd); err != nil {
		slog.Error("failed to query option order", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	optionID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll_option (id, poll_id, label, ord, vote_count, is_correct)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, optionID, pollID, req.Label, nextOrd.Int64, req.Correct)
	if err != nil {
		slog.Error("failed to insert option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	slog.Info("option added", "poll_id", pollID, "option_id", optionID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddOptionResponse{
		OptionID: optionID,
	})
}

// requireAdmin writes a 401 and returns false unless X-Admin-Key matches.
func (h *PollHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), h.cfg.AdminKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// parseLimit reads a positive limit, applying the default and the cap.
func parseLimit(s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

// parseHideCities reads the hide_cities flag, which defaults to true.
func parseHideCities(s string) (bool, error) {
	if s == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("hide_cities must be true or false")
	}
	return v, nil
}

// likeEscaper quotes LIKE wildcards for patterns written with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validSlug(s string) bool {
	if s == "" || len(s) > 64 || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}
