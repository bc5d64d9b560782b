// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/mosaic/internal/metrics"
)

// dataPrefix marks a line that carries an event.
const dataPrefix = "data: "

// readChunkSize is the read buffer for the stream body.
const readChunkSize = 4096

// LineSplitter reassembles newline-delimited lines from arbitrary chunks.
// A trailing partial line is held until a later chunk completes it, so the
// lines produced do not depend on where chunk boundaries fall. Splitting on
// the raw '\n' byte is safe for UTF-8 because no multi-byte sequence
// contains it.
type LineSplitter struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, without the
// trailing newline.
func (s *LineSplitter) Feed(chunk []byte) []string {
	s.buf = append(s.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(s.buf[:i]))
		s.buf = s.buf[i+1:]
	}

	// Compact so a long stream does not pin its whole history.
	if len(s.buf) == 0 {
		s.buf = nil
	} else if cap(s.buf) > 4*len(s.buf)+readChunkSize {
		s.buf = append([]byte(nil), s.buf...)
	}
	return lines
}

// Pending returns the bytes held back as an incomplete line.
func (s *LineSplitter) Pending() string {
	return string(s.buf)
}

// ParseLine interprets one stream line. ok is false for lines that are not
// events (comments, blank keep-alives, other SSE fields). err is set when a
// data line carries invalid JSON.
func ParseLine(line string) (ev Event, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return nil, false, nil
	}
	ev, err = Decode([]byte(trimmed[len(dataPrefix):]))
	if err != nil {
		return nil, true, err
	}
	return ev, true, nil
}

// Consume reads r chunk by chunk and calls fn for each event in arrival
// order. Malformed data lines are logged and skipped. It returns nil at end
// of stream, ctx.Err() when cancelled, or the read error. An unterminated
// fragment left at end of stream is dropped.
func Consume(ctx context.Context, r io.Reader, logger *slog.Logger, fn func(Event)) error {
	if logger == nil {
		logger = slog.Default()
	}

	var splitter LineSplitter
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			for _, line := range splitter.Feed(buf[:n]) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				ev, ok, err := ParseLine(line)
				if !ok {
					continue
				}
				if err != nil {
					metrics.ObserveMalformedLine()
					logger.Warn("research stream parse error", "error", err, "line", strings.TrimSpace(line))
					continue
				}
				fn(ev)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if rest := splitter.Pending(); strings.TrimSpace(rest) != "" {
					logger.Debug("dropping unterminated stream fragment", "bytes", len(rest))
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return readErr
		}
	}
}
