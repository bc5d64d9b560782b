// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/mosaic/pkg/types"
)

var (
	expandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	decisionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	platformStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	llmStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	countStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

// Terminal is a Page that also prints each update to a writer. The page
// stays the source of truth; the writer gets a styled transcript.
type Terminal struct {
	*Page

	mu       sync.Mutex
	w        io.Writer
	protocol bool
}

// NewTerminal mirrors page to w. With protocol set, the detailed protocol
// log is printed too.
func NewTerminal(w io.Writer, page *Page, protocol bool) *Terminal {
	return &Terminal{Page: page, w: w, protocol: protocol}
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, s)
}

func (t *Terminal) BeginResearch() {
	t.Page.BeginResearch()
	t.println(dimStyle.Render(researchLoading))
}

func (t *Terminal) AppendTrace(line TraceLine) {
	t.Page.AppendTrace(line)
	if !line.Audit {
		t.println(line.Text())
		return
	}
	style := decisionStyle
	if line.Expand() {
		style = expandStyle
	}
	t.println("> AUDIT: " + style.Render(line.Decision) + " - " + line.Reason)
}

func (t *Terminal) AppendProtocol(entry ProtocolEntry) {
	t.Page.AppendProtocol(entry)
	if t.protocol {
		t.println(dimStyle.Render(entry.Text()))
	}
}

func (t *Terminal) ShowSynthesis(fragment string) {
	t.Page.ShowSynthesis(fragment)
	t.printFragment(fragment)
}

func (t *Terminal) AppendFollowUpAnswer(fragment string) {
	t.Page.AppendFollowUpAnswer(fragment)
	t.println("")
	t.println(headingStyle.Render(followUpHeading))
	t.printFragment(fragment)
}

func (t *Terminal) DimTrace() {
	t.Page.DimTrace()
	t.println("")
}

func (t *Terminal) ShowStatsBanner(total string) {
	t.Page.ShowStatsBanner(total)
	t.println("Following results queried from " + countStyle.Render(total) + " datapoints.")
}

func (t *Terminal) ShowSuggestion(text string) {
	t.Page.ShowSuggestion(text)
	t.println(headingStyle.Render("Intelligence Suggestion") + " " + text)
}

func (t *Terminal) RenderCards(cards []CardView) {
	t.Page.RenderCards(cards)
	var b strings.Builder
	for _, c := range cards {
		tier := dimStyle.Render(c.Tier)
		if c.LLM {
			tier = llmStyle.Render(c.Tier)
		}
		fmt.Fprintf(&b, "[%d] %s  %s  %s (%s%%)\n    %s\n",
			c.Index, platformStyle.Render(c.Platform), tier, c.Relevance, c.Score, c.Preview)
	}
	t.println(strings.TrimRight(b.String(), "\n"))
}

func (t *Terminal) ShowNoResults(message string) {
	t.Page.ShowNoResults(message)
	t.println(message)
}

func (t *Terminal) ShowError(message string) {
	t.Page.ShowError(message)
	t.println(errorStyle.Render(message))
}

func (t *Terminal) OpenModal(item *types.Result) bool {
	if !t.Page.OpenModal(item) {
		return false
	}
	_, v := t.Page.Modal()
	t.println(strings.Join([]string{
		headingStyle.Render(v.Title),
		"Platform:   " + v.Platform,
		"Date:       " + v.Date,
		"Tier:       " + v.Tier,
		"Similarity: " + v.Similarity,
		"",
		v.ContentScrubbed,
		"",
		dimStyle.Render(v.ContentOriginal),
		"",
		v.Explanation,
	}, "\n"))
	return true
}

// printFragment writes an HTML fragment as Markdown, or raw when conversion
// fails.
func (t *Terminal) printFragment(fragment string) {
	md, err := t.Page.Markdown(fragment)
	if err != nil {
		md = fragment
	}
	if strings.Contains(fragment, `class="error"`) {
		md = errorStyle.Render(md)
	}
	t.println(md)
}
