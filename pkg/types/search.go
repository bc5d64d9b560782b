// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the wire structures exchanged with the Mosaic
// backend and the client configuration shared by the CLI and packages.
package types

// Result is one narrative returned by the search endpoint. The backend owns
// ranking and verification; the client only displays these fields.
type Result struct {
	// ID is the opaque post identifier.
	ID string `json:"id" yaml:"id"`

	// Platform names the source platform (e.g. "reddit").
	Platform string `json:"platform" yaml:"platform"`

	// Content is the original post text.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// ContentScrubbed is the anonymised post text.
	ContentScrubbed string `json:"content_scrubbed,omitempty" yaml:"content_scrubbed,omitempty"`

	// Similarity is the match score in [0,1].
	Similarity float64 `json:"similarity" yaml:"similarity"`

	// AIExplanation is present only for LLM-verified posts.
	AIExplanation string `json:"ai_explanation,omitempty" yaml:"ai_explanation,omitempty"`

	// PostDT is the post timestamp as sent by the backend.
	PostDT string `json:"post_dt,omitempty" yaml:"post_dt,omitempty"`
}

// HasExplanation reports whether the result carries an LLM explanation,
// which places it in the higher verification tier.
func (r Result) HasExplanation() bool {
	return r.AIExplanation != ""
}

// Stats is the aggregate counter block from /api/stats.
type Stats struct {
	TotalPosts int64 `json:"total_posts" yaml:"total_posts"`
}

// TrendPoint is one keyword score on one day.
type TrendPoint struct {
	Date    string  `json:"date" yaml:"date"`
	Keyword string  `json:"keyword" yaml:"keyword"`
	Score   float64 `json:"score" yaml:"score"`
}

// TrendsResponse wraps the /api/trends payload.
type TrendsResponse struct {
	Data []TrendPoint `json:"data"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
	AIOnly    bool    `json:"ai_only"`
	SGOnly    bool    `json:"sg_only"`
}

// SearchResponse is the body returned by POST /api/search. Suggestion is a
// broadened query offered when results are sparse.
type SearchResponse struct {
	Results    []Result `json:"results"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ResearchRequest is the body of POST /api/research.
type ResearchRequest struct {
	Query     string `json:"query"`
	SGOnly    bool   `json:"sg_only"`
	SessionID string `json:"session_id"`
}

// FollowUpRequest is the body of POST /api/follow-up. Context carries the
// synthesis the question refers to.
type FollowUpRequest struct {
	Query     string   `json:"query"`
	Context   string   `json:"context"`
	Results   []Result `json:"results"`
	SessionID string   `json:"session_id"`
}

// FollowUpResponse is the body returned by POST /api/follow-up.
type FollowUpResponse struct {
	Answer string `json:"answer"`
}
