// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:embed seed/polls.json
var seedJSON []byte

type seedData struct {
	Categories []struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"categories"`
	Polls []struct {
		Question string `json:"question"`
		Category string `json:"category"`
		Location string `json:"location"`
		Options  []struct {
			Label   string `json:"label"`
			Correct bool   `json:"correct"`
		} `json:"options"`
	} `json:"polls"`
}

// Seed loads the bundled demo categories and polls. It does nothing when
// the database already has polls. Returns the number of polls inserted.
func Seed(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM poll`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count polls: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	var data seedData
	if err := json.Unmarshal(seedJSON, &data); err != nil {
		return 0, fmt.Errorf("failed to parse seed data: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range data.Categories {
		_, err := tx.Exec(`
			INSERT INTO poll_category (slug, name) VALUES ($1, $2)
			ON CONFLICT (slug) DO NOTHING
		`, c.Slug, c.Name)
		if err != nil {
			return 0, fmt.Errorf("failed to insert category %s: %w", c.Slug, err)
		}
	}

	now := time.Now().UTC()
	for i, p := range data.Polls {
		pollID := uuid.NewString()
		var location *string
		if p.Location != "" {
			location = &p.Location
		}
		// Stagger creation times so "newest" is deterministic.
		createdAt := now.Add(-time.Duration(len(data.Polls)-i) * time.Hour)
		_, err := tx.Exec(`
			INSERT INTO poll (id, question, category_slug, location, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, pollID, p.Question, p.Category, location, createdAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert poll: %w", err)
		}

		for ord, o := range p.Options {
			_, err := tx.Exec(`
				INSERT INTO poll_option (id, poll_id, label, ord, is_correct)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.NewString(), pollID, o.Label, ord, o.Correct)
			if err != nil {
				return 0, fmt.Errorf("failed to insert option: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return len(data.Polls), nil
}
