// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package charts reshapes keyword trend points into a line chart dataset
// and keeps exactly one live chart per container.
package charts

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Keyword is one tracked search term and its series colour.
type Keyword struct {
	Name  string
	Color string
}

// Keywords are the five tracked terms in legend order.
var Keywords = []Keyword{
	{Name: "anxiety", Color: "#6366f1"},
	{Name: "depression", Color: "#ec4899"},
	{Name: "mental health", Color: "#10b981"},
	{Name: "self care", Color: "#f59e0b"},
	{Name: "therapy", Color: "#8b5cf6"},
}

// Series is one keyword's scores aligned to Dataset.Labels. A nil value is
// a gap: the keyword had no point on that date.
type Series struct {
	Keyword string
	Label   string
	Color   string
	Values  []*float64
}

// Dataset is a chart's x-axis and its series.
type Dataset struct {
	Labels []string
	Series []Series
}

// Empty reports whether there is nothing to draw.
func (d Dataset) Empty() bool { return len(d.Labels) == 0 }

// Max returns the largest score across all series, or 0.
func (d Dataset) Max() float64 {
	var m float64
	for _, s := range d.Series {
		for _, v := range s.Values {
			if v != nil && *v > m {
				m = *v
			}
		}
	}
	return m
}

// Reshape builds a dataset from raw points. The x-axis is the sorted set of
// distinct dates across all points; each keyword gets one series aligned to
// it. Points for keywords not in keywords are ignored for the series but
// still contribute their dates to the axis.
func Reshape(points []types.TrendPoint, keywords []Keyword) Dataset {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range points {
		if !seen[p.Date] {
			seen[p.Date] = true
			labels = append(labels, p.Date)
		}
	}
	sort.Strings(labels)

	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	ds := Dataset{Labels: labels}
	for _, kw := range keywords {
		values := make([]*float64, len(labels))
		for _, p := range points {
			if p.Keyword != kw.Name {
				continue
			}
			i := pos[p.Date]
			if values[i] == nil {
				score := p.Score
				values[i] = &score
			}
		}
		ds.Series = append(ds.Series, Series{
			Keyword: kw.Name,
			Label:   Label(kw.Name),
			Color:   kw.Color,
			Values:  values,
		})
	}
	return ds
}

// Label upper-cases the first letter of a keyword.
func Label(keyword string) string {
	r, size := utf8.DecodeRuneInString(keyword)
	if r == utf8.RuneError {
		return keyword
	}
	return string(unicode.ToUpper(r)) + keyword[size:]
}

// Band is the shaded rectangle behind a weekend column.
type Band struct {
	Index int
	X     float64
	Width float64
}

// WeekendColumns returns the indices of labels falling on Saturday or
// Sunday. Labels that are not dates are skipped.
func WeekendColumns(labels []string) []int {
	var cols []int
	for i, l := range labels {
		t, ok := parseDate(l)
		if !ok {
			continue
		}
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			cols = append(cols, i)
		}
	}
	return cols
}

// WeekendBands lays out a band for every weekend column of a plot area that
// starts at left and spans width. Each band is width/len(labels) wide and
// centred on its column's x position.
func WeekendBands(labels []string, left, width float64) []Band {
	if len(labels) == 0 {
		return nil
	}
	colW := width / float64(len(labels))
	var bands []Band
	for _, i := range WeekendColumns(labels) {
		bands = append(bands, Band{
			Index: i,
			X:     ColumnX(i, len(labels), left, width) - colW/2,
			Width: colW,
		})
	}
	return bands
}

// ColumnX is the x position of point i of n across a plot area. Points sit
// on the edges of the area, or in its middle when there is only one.
func ColumnX(i, n int, left, width float64) float64 {
	if n <= 1 {
		return left + width/2
	}
	return left + float64(i)*width/float64(n-1)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= len("2006-01-02") {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
