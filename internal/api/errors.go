// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/mosaic/internal/httputil"
)

// RequestError reports a failed backend call. Message is what the user sees:
// the server's detail text when it sent one, else a generic message for the
// operation.
type RequestError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

func newRequestError(op string, resp *http.Response, fallback string) *RequestError {
	msg := httputil.Detail(resp)
	if msg == "" {
		msg = fallback
	}
	return &RequestError{Op: op, Status: resp.StatusCode, Message: msg}
}

// Message returns the user-facing text for err: the RequestError message
// when err wraps one, else err.Error().
func Message(err error) string {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}
