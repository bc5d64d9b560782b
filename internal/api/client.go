// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is the transport adapter for the Mosaic backend. Every
// operation performs exactly one request: no retries, no caching. Failures
// surface as *RequestError carrying the server's detail message.
package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/mosaic/internal/httputil"
	"github.com/pdiddy/mosaic/internal/metrics"
	"github.com/pdiddy/mosaic/pkg/types"
)

// Endpoint paths on the backend.
const (
	pathStats    = "/api/stats"
	pathTrends   = "/api/trends"
	pathSearch   = "/api/search"
	pathResearch = "/api/research"
	pathFollowUp = "/api/follow-up"
)

// Generic messages used when the server sends no detail.
const (
	msgStats     = "Failed to fetch stats"
	msgTrends    = "Failed to fetch trends"
	msgSearch    = "Search API Error"
	msgHandshake = "Research Protocol Handshake Failed"
	msgFollowUp  = "Follow-up API Error"
)

// Client talks to one backend.
type Client struct {
	http *http.Client
	cfg  types.HTTPConfig
}

// New returns a Client. The http.Client must not set a Timeout: the research
// stream stays open for as long as the server keeps writing. Non-streaming
// calls are bounded by cfg.Timeout through their context instead.
func New(client *http.Client, cfg types.HTTPConfig) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{http: client, cfg: cfg}
}

// Stats fetches the aggregate post counters.
func (c *Client) Stats(ctx context.Context, aiOnly, sgOnly bool) (types.Stats, error) {
	q := url.Values{
		"ai_only": {strconv.FormatBool(aiOnly)},
		"sg_only": {strconv.FormatBool(sgOnly)},
	}
	var out types.Stats
	err := c.doJSON(ctx, "stats", http.MethodGet, pathStats+"?"+q.Encode(), nil, &out, msgStats)
	return out, err
}

// Trends fetches the trend points for the chart.
func (c *Client) Trends(ctx context.Context, sgOnly bool) ([]types.TrendPoint, error) {
	q := url.Values{"sg_only": {strconv.FormatBool(sgOnly)}}
	var out types.TrendsResponse
	if err := c.doJSON(ctx, "trends", http.MethodGet, pathTrends+"?"+q.Encode(), nil, &out, msgTrends); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Search runs a semantic search.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) (types.SearchResponse, error) {
	var out types.SearchResponse
	err := c.doJSON(ctx, "search", http.MethodPost, pathSearch, req, &out, msgSearch)
	return out, err
}

// FollowUp asks one follow-up question against a completed synthesis.
func (c *Client) FollowUp(ctx context.Context, req types.FollowUpRequest) (types.FollowUpResponse, error) {
	var out types.FollowUpResponse
	err := c.doJSON(ctx, "follow_up", http.MethodPost, pathFollowUp, req, &out, msgFollowUp)
	return out, err
}

// StartResearch opens the research stream. On success the caller owns the
// returned body and must close it; nothing has been read from it yet. A
// non-2xx status means the handshake itself was rejected.
func (c *Client) StartResearch(ctx context.Context, req types.ResearchRequest) (io.ReadCloser, error) {
	hreq, err := httputil.NewRequest(ctx, http.MethodPost, pathResearch, req, c.cfg)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(hreq)
	if err != nil {
		metrics.ObserveRequest("research", err)
		return nil, &RequestError{Op: "research", Message: msgHandshake, Err: err}
	}
	if !httputil.OK(resp) {
		rerr := newRequestError("research", resp, msgHandshake)
		metrics.ObserveRequest("research", rerr)
		return nil, rerr
	}

	metrics.ObserveRequest("research", nil)
	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any, fallback string) (err error) {
	defer func() { metrics.ObserveRequest(op, err) }()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := httputil.NewRequest(ctx, method, path, body, c.cfg)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Message: fallback, Err: err}
	}
	if !httputil.OK(resp) {
		return newRequestError(op, resp, fallback)
	}
	if err := httputil.DecodeJSON(resp, out); err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Message: fallback, Err: err}
	}
	return nil
}
