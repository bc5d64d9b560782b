// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the request and response helpers shared by the
// backend client.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/mosaic/pkg/types"
)

// maxDetailBytes bounds how much of an error body is read for the detail
// message.
const maxDetailBytes = 64 << 10

// NewRequest builds a request against cfg.BaseURL + path. A non-nil body is
// encoded as JSON. User agent, accept and bearer token headers come from cfg.
func NewRequest(ctx context.Context, method, path string, body any, cfg types.HTTPConfig) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIToken)
	}
	return req, nil
}

// OK reports whether the status is in the 2xx range.
func OK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Detail extracts the server's error message from a failed response. The
// backend reports errors as {"detail": "..."}; anything else (validation
// arrays, HTML error pages, empty bodies) yields "". The body is drained and
// closed.
func Detail(resp *http.Response) string {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	io.Copy(io.Discard, resp.Body)
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err != nil {
		return ""
	}
	return strings.TrimSpace(msg)
}

// DecodeJSON decodes the response body into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
