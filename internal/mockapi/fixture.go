// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mockapi

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Fixture is the canned data a Server answers with.
type Fixture struct {
	TotalPosts int64              `yaml:"total_posts"`
	Trends     []types.TrendPoint `yaml:"trends"`
	Results    []types.Result     `yaml:"results"`
	Suggestion string             `yaml:"suggestion"`

	// Stream holds the JSON payload of each research event, sent in order
	// as "data: <payload>" records.
	Stream     []string      `yaml:"stream"`
	EventDelay time.Duration `yaml:"event_delay"`

	Answer string `yaml:"answer"`

	// Fail makes an endpoint ("stats", "trends", "search", "research",
	// "follow_up") answer with the given status and FailDetail.
	Fail       map[string]int `yaml:"fail"`
	FailDetail string         `yaml:"fail_detail"`
}

// LoadFixture reads a YAML fixture from path. Fields the file leaves out
// keep their DefaultFixture values.
func LoadFixture(path string) (Fixture, error) {
	fx := DefaultFixture()
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("reading fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return fx, nil
}

// DefaultFixture returns two weeks of trends, a handful of results and a
// two-round research protocol that expands once and then completes.
func DefaultFixture() Fixture {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	keywords := []string{"anxiety", "depression", "mental health", "self care", "therapy"}

	var trends []types.TrendPoint
	for d := 0; d < 14; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		for k, kw := range keywords {
			// therapy skips weekends to leave gaps in its series
			if kw == "therapy" && (d%7 == 5 || d%7 == 6) {
				continue
			}
			trends = append(trends, types.TrendPoint{
				Date:    date,
				Keyword: kw,
				Score:   float64(20 + 10*k + (d*7+k*3)%15),
			})
		}
	}

	results := []types.Result{
		{ID: "7f3c9a10-0001", Platform: "reddit", Content: "I can't sleep before exams, my chest gets tight.", ContentScrubbed: "I can't sleep before exams, my chest gets tight.", Similarity: 0.82, AIExplanation: "Describes somatic anxiety tied to academic stress.", PostDT: "2025-12-02T21:14:00Z"},
		{ID: "7f3c9a10-0002", Platform: "hardwarezone", Content: "Work has been crushing me for months.", ContentScrubbed: "Work has been crushing me for months.", Similarity: 0.66, PostDT: "2025-11-18T08:30:00Z"},
		{ID: "7f3c9a10-0003", Platform: "reddit", Content: "Started seeing a counsellor at my poly, it helps.", ContentScrubbed: "Started seeing a counsellor at [ORG], it helps.", Similarity: 0.58, AIExplanation: "Positive help-seeking narrative.", PostDT: "2025-10-30"},
		{ID: "7f3c9a10-0004", Platform: "x", Content: "tired of pretending i'm fine", ContentScrubbed: "tired of pretending i'm fine", Similarity: 0.49},
		{ID: "7f3c9a10-0005", Platform: "reddit", Content: "Any tips for burnout?", ContentScrubbed: "Any tips for burnout?", Similarity: 0.41, PostDT: "2025-09-12T12:00:00Z"},
		{ID: "7f3c9a10-0006", Platform: "tiktok", Content: "", ContentScrubbed: "", Similarity: 0.33},
	}

	return Fixture{
		TotalPosts: 1284503,
		Trends:     trends,
		Results:    results,
		Suggestion: "Try broader phrasing such as \"stress\" or \"burnout\" for more matches.",
		Stream: []string{
			`{"phase":"sampling","status":"Sampling 50 narratives","n":50}`,
			`{"phase":"audit","status":"Auditing sample coverage","n":50}`,
			`{"phase":"audit_result","decision":"EXPAND","reason":"Too few distinct themes","n":50}`,
			`{"phase":"log","message":"Sample expanded","data":{"from":50,"to":100}}`,
			`{"phase":"sampling","status":"Sampling 100 narratives","n":100}`,
			`{"phase":"audit","status":"Auditing sample coverage","n":100}`,
			`{"phase":"audit_result","decision":"SUFFICIENT","reason":"Themes saturated","n":100}`,
			`{"phase":"synthesis","status":"Synthesizing findings","n":100}`,
			completeEvent("**Key themes**\n- Academic pressure drives sleep loss\n- Help-seeking is rising\n\nOverall the sample points to stress rather than clinical depression.", 100),
		},
		Answer: "**Yes.** Posts mentioning exams cluster in November.\n- 38% reference exams\n- 12% mention counselling",
	}
}

func completeEvent(content string, n int) string {
	b, _ := json.Marshal(map[string]any{"phase": "complete", "content": content, "n": n})
	return string(b)
}
