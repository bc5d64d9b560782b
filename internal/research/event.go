// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Phase is the discriminator carried by every stream record.
type Phase string

const (
	PhaseSampling    Phase = "sampling"
	PhaseAudit       Phase = "audit"
	PhaseSynthesis   Phase = "synthesis"
	PhaseAuditResult Phase = "audit_result"
	PhaseLog         Phase = "log"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// DecisionExpand is the audit decision that grows the sample for another round.
const DecisionExpand = "EXPAND"

// Event is one decoded stream record. The set of implementations is closed:
// Progress, AuditResult, LogEvent, Complete, Failure and Unknown.
type Event interface {
	Phase() Phase
	isEvent()
}

// Progress is a checkpoint of the current round (sampling, audit or
// synthesis).
type Progress struct {
	Kind   Phase
	Status string
	N      *int
}

// AuditResult reports whether the audit step expanded the sample or stopped.
// Raw keeps the full record for the protocol log.
type AuditResult struct {
	Decision string
	Reason   string
	N        *int
	Raw      json.RawMessage
}

// Expand reports whether the audit asked for a larger sample.
func (a AuditResult) Expand() bool { return a.Decision == DecisionExpand }

// LogEvent is a free-form diagnostic with an optional structured payload.
type LogEvent struct {
	Message string
	Data    json.RawMessage
}

// Complete is terminal success: Content is the final synthesis.
type Complete struct {
	Content string
	N       *int
}

// Failure is an in-band terminal error.
type Failure struct {
	Content string
}

// Unknown carries a phase this client does not understand. It is ignored so
// newer servers can add phases.
type Unknown struct {
	Name Phase
	Raw  json.RawMessage
}

func (p Progress) Phase() Phase  { return p.Kind }
func (AuditResult) Phase() Phase { return PhaseAuditResult }
func (LogEvent) Phase() Phase    { return PhaseLog }
func (Complete) Phase() Phase    { return PhaseComplete }
func (Failure) Phase() Phase     { return PhaseError }
func (u Unknown) Phase() Phase   { return u.Name }

func (Progress) isEvent()    {}
func (AuditResult) isEvent() {}
func (LogEvent) isEvent()    {}
func (Complete) isEvent()    {}
func (Failure) isEvent()     {}
func (Unknown) isEvent()     {}

// record is the union of all fields any phase may carry.
type record struct {
	Phase    Phase           `json:"phase"`
	Status   text            `json:"status"`
	N        json.RawMessage `json:"n"`
	Decision text            `json:"decision"`
	Reason   text            `json:"reason"`
	Message  text            `json:"message"`
	Data     json.RawMessage `json:"data"`
	Content  text            `json:"content"`
}

// text is a display field that accepts any JSON value. Strings decode as
// themselves, null as empty, and anything else as its compact JSON.
type text string

func (t *text) UnmarshalJSON(raw []byte) error {
	if nonNull(raw) == nil {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*t = text(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return err
	}
	*t = text(buf.String())
	return nil
}

// Decode turns one JSON record into its Event variant.
func Decode(payload []byte) (Event, error) {
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decoding research event: %w", err)
	}

	switch rec.Phase {
	case PhaseSampling, PhaseAudit, PhaseSynthesis:
		return Progress{Kind: rec.Phase, Status: string(rec.Status), N: sampleCount(rec.N)}, nil
	case PhaseAuditResult:
		raw := make(json.RawMessage, len(payload))
		copy(raw, payload)
		return AuditResult{Decision: string(rec.Decision), Reason: string(rec.Reason), N: sampleCount(rec.N), Raw: raw}, nil
	case PhaseLog:
		return LogEvent{Message: string(rec.Message), Data: nonNull(rec.Data)}, nil
	case PhaseComplete:
		return Complete{Content: string(rec.Content), N: sampleCount(rec.N)}, nil
	case PhaseError:
		return Failure{Content: string(rec.Content)}, nil
	default:
		raw := make(json.RawMessage, len(payload))
		copy(raw, payload)
		return Unknown{Name: rec.Phase, Raw: raw}, nil
	}
}

// sampleCount accepts n as a JSON number or numeric string. Anything else is
// unknown.
func sampleCount(raw json.RawMessage) *int {
	if nonNull(raw) == nil {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		n := int(f)
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
	}
	return nil
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// formatN renders a sample count for the trace; zero and unknown print "?".
func formatN(n *int) string {
	if n == nil || *n == 0 {
		return "?"
	}
	return strconv.Itoa(*n)
}
