// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/models"
	"github.com/google/uuid"
)

const defaultLeadSource = "Website"

type LeadHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewLeadHandler(db *sql.DB, cfg cliparse.Config) *LeadHandler {
	return &LeadHandler{db: db, cfg: cfg}
}

// CreateLead handles POST /leads
func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLeadRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Email == "" && req.Phone == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email or phone is required")
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "email is invalid")
			return
		}
	}
	if req.Phone != "" && digits(req.Phone) < 7 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "phone is invalid")
		return
	}
	if req.Passengers < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "passengers cannot be negative")
		return
	}

	if strings.TrimSpace(req.Source) == "" {
		req.Source = defaultLeadSource
	}
	if req.Page == "" {
		req.Page = refererPath(r.Referer())
	}

	leadID := uuid.NewString()
	_, err := h.db.ExecContext(r.Context(), `
		INSERT INTO lead (id, source, page, name, email, phone, event_type, passengers, event_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, leadID, req.Source, req.Page, nullable(req.Name), nullable(req.Email), nullable(req.Phone),
		nullable(req.EventType), req.Passengers, nullable(req.EventDate), time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert lead", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save quote request")
		return
	}

	slog.Info("lead captured", "lead_id", leadID, "source", req.Source, "page", req.Page)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateLeadResponse{LeadID: leadID})
}

// refererPath returns the path of the referring page, or "/".
func refererPath(referer string) string {
	if referer == "" {
		return "/"
	}
	u, err := url.Parse(referer)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func digits(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}
