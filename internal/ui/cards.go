// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"time"

	"github.com/pdiddy/mosaic/pkg/types"
)

const (
	previewRunes  = 180
	noContent     = "[No Content]"
	cardStagger   = 50 * time.Millisecond
	unknownDate   = "Unknown"
	noExplanation = "No detailed AI analysis available for this record yet."
)

// CardView is the display model of one result card.
type CardView struct {
	Index     int
	ID        string
	Platform  string
	Tier      string
	LLM       bool
	Relevance string
	Score     string
	Preview   string
	Delay     time.Duration
}

// TierClass is the CSS class for the tier pill.
func (c CardView) TierClass() string {
	if c.LLM {
		return "tier-llm"
	}
	return "tier-regex"
}

// BuildCards maps results to cards in order.
func BuildCards(results []types.Result) []CardView {
	cards := make([]CardView, len(results))
	for i, r := range results {
		cards[i] = CardView{
			Index:     i,
			ID:        r.ID,
			Platform:  r.Platform,
			Tier:      TierLabel(r),
			LLM:       r.HasExplanation(),
			Relevance: RelevanceLabel(r.Similarity),
			Score:     Percent(r.Similarity),
			Preview:   preview(r.ContentScrubbed),
			Delay:     time.Duration(i) * cardStagger,
		}
	}
	return cards
}

func preview(text string) string {
	if text == "" {
		return noContent
	}
	runes := []rune(text)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes) + "..."
}

// ModalView holds the fields of the detail modal.
type ModalView struct {
	Title           string
	Platform        string
	ContentScrubbed string
	ContentOriginal string
	Date            string
	Tier            string
	Similarity      string
	Explanation     string
}

// BuildModal derives the modal fields for item. ok is false for a nil item.
func BuildModal(item *types.Result) (view ModalView, ok bool) {
	if item == nil {
		return ModalView{}, false
	}

	id := item.ID
	if r := []rune(id); len(r) > 8 {
		id = string(r[:8])
	}

	explanation := item.AIExplanation
	if explanation == "" {
		explanation = noExplanation
	}

	return ModalView{
		Title:           "Narrative " + id,
		Platform:        item.Platform,
		ContentScrubbed: item.ContentScrubbed,
		ContentOriginal: item.Content,
		Date:            FormatDate(item.PostDT),
		Tier:            TierDetail(*item),
		Similarity:      Percent(item.Similarity) + "%",
		Explanation:     explanation,
	}, true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders a backend timestamp as "Jan 2, 2006". Empty is
// "Unknown"; an unparseable value is shown verbatim.
func FormatDate(raw string) string {
	if raw == "" {
		return unknownDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}

// Modal is the single detail modal. Opening it locks page scroll and
// closing it releases the lock.
type Modal struct {
	open bool
	view ModalView
}

// Open shows item. A nil item is a no-op and returns false.
func (m *Modal) Open(item *types.Result) bool {
	view, ok := BuildModal(item)
	if !ok {
		return false
	}
	m.view = view
	m.open = true
	return true
}

// Close hides the modal.
func (m *Modal) Close() {
	m.open = false
}

// IsOpen reports whether the modal is shown; scroll is locked exactly when
// it is.
func (m Modal) IsOpen() bool { return m.open }

// View returns the fields of the last opened item.
func (m Modal) View() ModalView { return m.view }
