// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mosaic/pkg/types"
)

func TestBuildCards(t *testing.T) {
	long := strings.Repeat("é", 200)
	cards := BuildCards([]types.Result{
		{ID: "a", Platform: "reddit", ContentScrubbed: "short", Similarity: 0.72, AIExplanation: "yes"},
		{ID: "b", Platform: "x", ContentScrubbed: long, Similarity: 0.5},
		{ID: "c", Platform: "forum", Similarity: 0.1},
	})
	require.Len(t, cards, 3)

	assert.Equal(t, "short...", cards[0].Preview)
	assert.Equal(t, LabelTopMatch, cards[0].Relevance)
	assert.Equal(t, "72.0", cards[0].Score)
	assert.Equal(t, "tier-llm", cards[0].TierClass())
	assert.Zero(t, cards[0].Delay)

	assert.Equal(t, strings.Repeat("é", 180)+"...", cards[1].Preview)
	assert.Equal(t, "tier-regex", cards[1].TierClass())
	assert.Equal(t, 50*time.Millisecond, cards[1].Delay)

	assert.Equal(t, "[No Content]", cards[2].Preview)
	assert.Equal(t, 100*time.Millisecond, cards[2].Delay)
	assert.Equal(t, 2, cards[2].Index)
}

func TestBuildModal(t *testing.T) {
	_, ok := BuildModal(nil)
	assert.False(t, ok)

	v, ok := BuildModal(&types.Result{
		ID:              "0123456789abcdef",
		Platform:        "reddit",
		Content:         "raw",
		ContentScrubbed: "clean",
		Similarity:      0.456,
		PostDT:          "2025-11-03T10:00:00Z",
	})
	require.True(t, ok)
	assert.Equal(t, "Narrative 01234567", v.Title)
	assert.Equal(t, "Nov 3, 2025", v.Date)
	assert.Equal(t, "45.6%", v.Similarity)
	assert.Equal(t, TierRegexDetail, v.Tier)
	assert.Equal(t, "No detailed AI analysis available for this record yet.", v.Explanation)
	assert.Equal(t, "raw", v.ContentOriginal)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Unknown", FormatDate(""))
	assert.Equal(t, "Jan 2, 2024", FormatDate("2024-01-02"))
	assert.Equal(t, "Jan 2, 2024", FormatDate("2024-01-02T08:00:00.123456"))
	assert.Equal(t, "yesterday", FormatDate("yesterday"))
}

func TestModalOpenClose(t *testing.T) {
	var m Modal
	assert.False(t, m.Open(nil))
	assert.False(t, m.IsOpen())

	require.True(t, m.Open(&types.Result{ID: "abc"}))
	assert.True(t, m.IsOpen())
	assert.Equal(t, "Narrative abc", m.View().Title)

	m.Close()
	assert.False(t, m.IsOpen())
}

func TestTabSet(t *testing.T) {
	var s TabSet
	assert.Equal(t, TabSynthesis, s.Active())

	require.NoError(t, s.Switch(TabProtocol))
	require.NoError(t, s.Switch(TabProtocol))
	assert.True(t, s.IsActive(TabProtocol))
	assert.False(t, s.IsActive(TabSynthesis))

	assert.Error(t, s.Switch("settings"))
	assert.Equal(t, TabProtocol, s.Active())

	_, err := ParseTab("evidence")
	assert.NoError(t, err)
}
