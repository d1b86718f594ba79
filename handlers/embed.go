// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var embedTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Gradient is the card background of an embedded poll.
type Gradient struct {
	From, Via, To string
}

var gradients = []Gradient{
	{"#4f46e5", "#9333ea", "#db2777"}, // indigo, purple, pink
	{"#2563eb", "#0891b2", "#0d9488"}, // blue, cyan, teal
	{"#7c3aed", "#c026d3", "#e11d48"}, // violet, fuchsia, rose
	{"#059669", "#16a34a", "#65a30d"}, // emerald, green, lime
	{"#ea580c", "#dc2626", "#db2777"}, // orange, red, pink
	{"#d97706", "#ca8a04", "#ea580c"}, // amber, yellow, orange
}

// GradientFor picks a gradient from the poll ID, so a poll keeps its
// colors across page loads.
func GradientFor(pollID string) Gradient {
	sum := 0
	for i := 0; i < len(pollID); i++ {
		sum += int(pollID[i])
	}
	return gradients[sum%len(gradients)]
}

// EmbedPath is the iframe path for a poll and embed type.
func EmbedPath(pollID, embedType string) string {
	if embedType == models.EmbedResults {
		return "/embed/polls/" + pollID + "/results"
	}
	return "/embed/polls/" + pollID
}

// EmbedSnippet is the iframe markup site owners paste into their pages.
func EmbedSnippet(src string) string {
	return fmt.Sprintf(`<iframe src="%s" width="100%%" height="400" frameborder="0" style="border-radius: 12px; max-width: 500px;"></iframe>`,
		template.HTMLEscapeString(src))
}

type embedPage struct {
	Poll     models.PollWithOptions
	Results  models.PollResults
	Gradient Gradient
}

type EmbedHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewEmbedHandler(db *sql.DB, cfg cliparse.Config) *EmbedHandler {
	return &EmbedHandler{db: db, cfg: cfg}
}

// LivePoll handles GET /embed/polls/{id}
func (h *EmbedHandler) LivePoll(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "live.html")
}

// ResultsPoll handles GET /embed/polls/{id}/results
func (h *EmbedHandler) ResultsPoll(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "results.html")
}

func (h *EmbedHandler) render(w http.ResponseWriter, r *http.Request, name string) {
	pollID := r.PathValue("id")

	poll, err := getPoll(r.Context(), h.db, pollID)
	if errors.Is(err, ErrPollNotFound) {
		writeHTML(w, http.StatusNotFound, "missing.html", nil)
		return
	}
	if err != nil {
		slog.Error("failed to load embedded poll", "error", err, "poll_id", pollID)
		http.Error(w, "Poll unavailable", http.StatusInternalServerError)
		return
	}

	writeHTML(w, http.StatusOK, name, embedPage{
		Poll:     poll,
		Results:  computeResults(poll),
		Gradient: GradientFor(poll.ID),
	})
}

func writeHTML(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := embedTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render embed", "error", err, "template", name)
		http.Error(w, "Poll unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// EmbedCode handles GET /polls/{id}/embed-code
func (h *EmbedHandler) EmbedCode(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	embedType := r.URL.Query().Get("type")
	if embedType == "" {
		embedType = models.EmbedLive
	}
	if embedType != models.EmbedLive && embedType != models.EmbedResults {
		middleware.ErrorResponse(w, http.StatusBadRequest, "type must be live or results")
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

	src := strings.TrimRight(h.cfg.SiteOrigin, "/") + EmbedPath(pollID, embedType)
	middleware.JSONResponse(w, http.StatusOK, models.EmbedCodeResponse{
		PollID: pollID,
		Type:   embedType,
		URL:    src,
		Code:   EmbedSnippet(src),
	})
}
