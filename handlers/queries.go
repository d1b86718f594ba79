// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bus2ride/livepolls/db"
	"github.com/bus2ride/livepolls/models"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrOptionNotFound  = errors.New("option not found")
	ErrOptionNotInPoll = errors.New("option does not belong to poll")
	ErrAlreadyVoted    = errors.New("already voted on this poll")
)

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Polls with their category name and total votes. Callers append WHERE,
// then pollGroupBy and their ORDER BY.
const pollSelect = `
	SELECT p.id, p.question, p.category_slug, c.name, p.location, p.view_count, p.created_at,
	       COALESCE(SUM(o.vote_count), 0)
	FROM poll p
	LEFT JOIN poll_category c ON c.slug = p.category_slug
	LEFT JOIN poll_option o ON o.poll_id = p.id
`

const pollGroupBy = `
	GROUP BY p.id, p.question, p.category_slug, c.name, p.location, p.view_count, p.created_at
`

// queryPolls runs a pollSelect based query and attaches options to every
// poll. Rows are closed before options are read, so this is safe on a
// single-connection pool.
func queryPolls(ctx context.Context, q queryer, query string, args ...any) ([]models.PollWithOptions, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}

	polls := []models.PollWithOptions{}
	for rows.Next() {
		var p models.PollWithOptions
		var created db.Timestamp
		if err := rows.Scan(
			&p.ID, &p.Question, &p.CategorySlug, &p.CategoryName, &p.Location,
			&p.ViewCount, &created, &p.TotalVotes,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		p.CreatedAt = created.Time
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}
	rows.Close()

	if err := attachOptions(ctx, q, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// attachOptions loads options for the given polls, ordered by ord.
func attachOptions(ctx context.Context, q queryer, polls []models.PollWithOptions) error {
	if len(polls) == 0 {
		return nil
	}

	index := make(map[string]int, len(polls))
	placeholders := make([]string, len(polls))
	args := make([]any, len(polls))
	for i, p := range polls {
		index[p.ID] = i
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = p.ID
		polls[i].Options = []models.Option{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, label, ord, vote_count, is_correct
		FROM poll_option
		WHERE poll_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY poll_id, ord, id
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Label, &opt.Ord, &opt.VoteCount, &opt.Correct); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		i := index[opt.PollID]
		polls[i].Options = append(polls[i].Options, opt)
	}
	return rows.Err()
}

// getPoll loads a single poll with options.
func getPoll(ctx context.Context, q queryer, pollID string) (models.PollWithOptions, error) {
	polls, err := queryPolls(ctx, q, pollSelect+` WHERE p.id = $1 `+pollGroupBy, pollID)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	if len(polls) == 0 {
		return models.PollWithOptions{}, ErrPollNotFound
	}
	return polls[0], nil
}

// computeResults turns a poll's counters into percentages. Options are
// sorted by votes, most first, with ties kept in display order. The
// leading option is flagged when it has any share of the vote.
func computeResults(p models.PollWithOptions) models.PollResults {
	opts := make([]models.Option, len(p.Options))
	copy(opts, p.Options)
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].VoteCount > opts[j].VoteCount
	})

	var total int64
	for _, o := range opts {
		total += o.VoteCount
	}

	results := models.PollResults{
		PollID:     p.ID,
		Question:   p.Question,
		TotalVotes: total,
		Options:    make([]models.OptionResult, len(opts)),
	}
	for i, o := range opts {
		percent := 0
		if total > 0 {
			percent = int(math.Round(float64(o.VoteCount) / float64(total) * 100))
		}
		results.Options[i] = models.OptionResult{
			OptionID: o.ID,
			Label:    o.Label,
			Votes:    o.VoteCount,
			Percent:  percent,
			Top:      i == 0 && percent > 0,
		}
	}
	return results
}

// pollResults loads a poll and computes its results.
func pollResults(ctx context.Context, q queryer, pollID string) (models.PollResults, error) {
	p, err := getPoll(ctx, q, pollID)
	if err != nil {
		return models.PollResults{}, err
	}
	return computeResults(p), nil
}

func sumVotes(polls []models.PollWithOptions) int64 {
	var total int64
	for _, p := range polls {
		total += p.TotalVotes
	}
	return total
}

// pollsByID loads the given polls and returns them in the order of ids.
// Unknown ids are skipped.
func pollsByID(ctx context.Context, q queryer, ids []string) ([]models.PollWithOptions, error) {
	if len(ids) == 0 {
		return []models.PollWithOptions{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	polls, err := queryPolls(ctx, q, pollSelect+
		` WHERE p.id IN (`+strings.Join(placeholders, ", ")+`) `+pollGroupBy, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.PollWithOptions, len(polls))
	for _, p := range polls {
		byID[p.ID] = p
	}
	ordered := make([]models.PollWithOptions, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}
