package models

import "time"

// Embed types
const (
	EmbedLive    = "live"
	EmbedResults = "results"
)

// Request types

type CreateCategoryRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type CreatePollRequest struct {
	Question     string   `json:"question"`
	CategorySlug string   `json:"category_slug"`
	Location     string   `json:"location"`
	Options      []string `json:"options"`
}

type AddOptionRequest struct {
	Label   string `json:"label"`
	Correct bool   `json:"correct"`
}

type VoterTokenResponse struct {
	VoterToken string `json:"voter_token"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

// Bodies of the hosted-database style RPC endpoints.
type IncrementVoteRPC struct {
	OptionID string `json:"p_option_id"`
}

type IncrementViewRPC struct {
	PollID string `json:"p_poll_id"`
}

type CreateLeadRequest struct {
	Source     string `json:"source"`
	Page       string `json:"page"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	EventType  string `json:"event_type"`
	Passengers int    `json:"passengers"`
	EventDate  string `json:"event_date"`
}

// Response types

type CreatePollResponse struct {
	PollID    string   `json:"poll_id"`
	OptionIDs []string `json:"option_ids"`
}

type AddOptionResponse struct {
	OptionID string `json:"option_id"`
}

type CastVoteResponse struct {
	PollID   string      `json:"poll_id"`
	OptionID string      `json:"option_id"`
	Results  PollResults `json:"results"`
}

type ViewResponse struct {
	PollID    string `json:"poll_id"`
	ViewCount int64  `json:"view_count"`
}

type CreateLeadResponse struct {
	LeadID string `json:"lead_id"`
}

type EmbedCodeResponse struct {
	PollID string `json:"poll_id"`
	Type   string `json:"type"`
	URL    string `json:"url"`
	Code   string `json:"code"`
}

type PollListResponse struct {
	Polls      []PollWithOptions `json:"polls"`
	TotalVotes int64             `json:"total_votes"`
}

type PollColumn struct {
	Category string            `json:"category"`
	Title    string            `json:"title"`
	Polls    []PollWithOptions `json:"polls"`
}

type PollColumnsResponse struct {
	Columns    []PollColumn `json:"columns"`
	TotalVotes int64        `json:"total_votes"`
	Questions  int          `json:"questions"`
}

type LocationPollsResponse struct {
	City             string            `json:"city"`
	State            string            `json:"state,omitempty"`
	LocationSpecific bool              `json:"location_specific"`
	Title            string            `json:"title"`
	Subtitle         string            `json:"subtitle"`
	Badge            string            `json:"badge"`
	Polls            []PollWithOptions `json:"polls"`
	TotalVotes       int64             `json:"total_votes"`
}

type FilteredPollsResponse struct {
	Filter string            `json:"filter"`
	Polls  []PollWithOptions `json:"polls"`
}

// Domain types

type Category struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

type Poll struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	CategorySlug *string   `json:"category_slug,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Location     *string   `json:"location,omitempty"`
	ViewCount    int64     `json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Option struct {
	ID        string `json:"id"`
	PollID    string `json:"poll_id"`
	Label     string `json:"label"`
	Ord       int    `json:"ord"`
	VoteCount int64  `json:"vote_count"`
	// Trivia answer flag; never sent to voters before they vote.
	Correct bool `json:"-"`
}

type PollWithOptions struct {
	Poll
	Options    []Option `json:"options"`
	TotalVotes int64    `json:"total_votes"`
}

type OptionResult struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Votes    int64  `json:"votes"`
	Percent  int    `json:"percent"`
	Top      bool   `json:"top"`
}

type PollResults struct {
	PollID     string         `json:"poll_id"`
	Question   string         `json:"question"`
	TotalVotes int64          `json:"total_votes"`
	Options    []OptionResult `json:"options"`
}

type Lead struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Page       string    `json:"page"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	EventType  string    `json:"event_type,omitempty"`
	Passengers int       `json:"passengers,omitempty"`
	EventDate  string    `json:"event_date,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
