// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"fmt"
	"strings"
	"time"
)

// TraceLine is one entry in the user-facing research trace.
type TraceLine struct {
	// Audit marks an audit decision line; otherwise it is a progress line.
	Audit bool

	Status   string
	N        string
	Decision string
	Reason   string
}

// Expand reports whether this audit line asked for a larger sample. Expand
// lines get a distinct treatment on every surface.
func (l TraceLine) Expand() bool {
	return l.Audit && l.Decision == "EXPAND"
}

// Text renders the line as shown in the trace panel.
func (l TraceLine) Text() string {
	if l.Audit {
		return fmt.Sprintf("> AUDIT: %s - %s", l.Decision, l.Reason)
	}
	return fmt.Sprintf("> %s [N=%s]", l.Status, l.N)
}

// ProtocolTag classifies protocol log entries.
type ProtocolTag string

const (
	TagPhase      ProtocolTag = "PHASE"
	TagAuditTrace ProtocolTag = "AUDIT_TRACE"
	TagDebug      ProtocolTag = "DEBUG"
	TagSuccess    ProtocolTag = "SUCCESS"
)

// ProtocolEntry is one timestamped line of the detailed protocol log.
// Payload holds pretty-printed JSON when the event carried structured data.
type ProtocolEntry struct {
	At      time.Time   `json:"at" yaml:"at"`
	Tag     ProtocolTag `json:"tag" yaml:"tag"`
	Message string      `json:"message" yaml:"message"`
	Payload string      `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Header renders the entry's single-line form.
func (e ProtocolEntry) Header() string {
	return fmt.Sprintf("[%s] [%s] %s", e.At.Format("15:04:05"), e.Tag, e.Message)
}

// Text renders the entry with its payload indented below.
func (e ProtocolEntry) Text() string {
	if e.Payload == "" {
		return e.Header()
	}
	var b strings.Builder
	b.WriteString(e.Header())
	for _, line := range strings.Split(e.Payload, "\n") {
		b.WriteString("\n    ")
		b.WriteString(line)
	}
	return b.String()
}

// FollowUpState is the follow-up control's visibility.
type FollowUpState int

const (
	FollowUpHidden FollowUpState = iota
	FollowUpVisible
	FollowUpBusy
)

func (s FollowUpState) String() string {
	switch s {
	case FollowUpVisible:
		return "visible"
	case FollowUpBusy:
		return "busy"
	default:
		return "hidden"
	}
}

// Panel names a scrollable log panel.
type Panel string

const (
	PanelTrace    Panel = "trace"
	PanelProtocol Panel = "protocol"
)
