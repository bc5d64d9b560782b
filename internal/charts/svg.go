// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package charts

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"sync/atomic"
)

// Canvas receives the chart markup. An empty string clears it.
type Canvas interface {
	SetChart(svg string)
}

const (
	marginLeft   = 32.0
	marginRight  = 8.0
	marginTop    = 20.0
	marginBottom = 18.0
	maxXTicks    = 6
	weekendFill  = `fill="#ffffff" fill-opacity="0.035"`
	axisColor    = "#475569"
	legendColor  = "#94a3b8"
)

// SVGWidget draws line charts as SVG onto a Canvas and counts the charts it
// has drawn that are not yet destroyed.
type SVGWidget struct {
	canvas Canvas
	width  float64
	height float64
	live   atomic.Int64
}

// NewSVGWidget draws width×height charts onto canvas.
func NewSVGWidget(canvas Canvas, width, height int) *SVGWidget {
	return &SVGWidget{canvas: canvas, width: float64(width), height: float64(height)}
}

// Live returns the number of charts drawn and not destroyed.
func (w *SVGWidget) Live() int { return int(w.live.Load()) }

// Draw renders ds and puts it on the canvas.
func (w *SVGWidget) Draw(ds Dataset) (Chart, error) {
	if ds.Empty() {
		return nil, fmt.Errorf("empty dataset")
	}
	w.canvas.SetChart(w.Render(ds))
	w.live.Add(1)
	return &svgChart{widget: w}, nil
}

// Render returns the SVG markup for ds without drawing it.
func (w *SVGWidget) Render(ds Dataset) string {
	left := marginLeft
	top := marginTop
	plotW := w.width - marginLeft - marginRight
	plotH := w.height - marginTop - marginBottom
	n := len(ds.Labels)

	ymax := ds.Max()
	if ymax <= 0 {
		ymax = 1
	}
	y := func(v float64) float64 { return top + plotH - v/ymax*plotH }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`,
		w.width, w.height, w.width, w.height)

	b.WriteString(`<g class="weekends">`)
	for _, band := range WeekendBands(ds.Labels, left, plotW) {
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" %s></rect>`,
			band.X, top, band.Width, plotH, weekendFill)
	}
	b.WriteString(`</g>`)

	// y axis: zero and max
	fmt.Fprintf(&b, `<g class="y-axis" fill="%s" font-size="10">`, axisColor)
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end">0</text>`, left-4, y(0))
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end">%g</text>`, left-4, y(ymax)+4, ymax)
	b.WriteString(`</g>`)

	fmt.Fprintf(&b, `<g class="x-axis" fill="%s" font-size="9">`, axisColor)
	for _, i := range tickIndices(n, maxXTicks) {
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`,
			ColumnX(i, n, left, plotW), w.height-4, html.EscapeString(ds.Labels[i]))
	}
	b.WriteString(`</g>`)

	for _, s := range ds.Series {
		fmt.Fprintf(&b, `<g class="series" data-keyword="%s">`, html.EscapeString(s.Keyword))
		for _, run := range segments(s.Values) {
			pts := make([]string, 0, len(run))
			for _, i := range run {
				pts = append(pts, fmt.Sprintf("%.1f,%.1f", ColumnX(i, n, left, plotW), y(*s.Values[i])))
			}
			fmt.Fprintf(&b, `<polyline fill="none" stroke="%s" stroke-width="2" points="%s"></polyline>`,
				s.Color, strings.Join(pts, " "))
		}
		b.WriteString(`</g>`)
	}

	fmt.Fprintf(&b, `<g class="legend" font-size="10" fill="%s">`, legendColor)
	x := left
	for _, s := range ds.Series {
		fmt.Fprintf(&b, `<rect x="%.1f" y="4" width="10" height="10" fill="%s"></rect>`, x, s.Color)
		fmt.Fprintf(&b, `<text x="%.1f" y="13">%s</text>`, x+14, html.EscapeString(s.Label))
		x += 14 + float64(len(s.Label))*6 + 10
	}
	b.WriteString(`</g></svg>`)
	return b.String()
}

// segments splits the indices of non-nil values into contiguous runs; gaps
// break the line.
func segments(values []*float64) [][]int {
	var (
		runs [][]int
		cur  []int
	)
	for i, v := range values {
		if v == nil {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// tickIndices picks at most limit evenly spaced label indices, always
// including the first.
func tickIndices(n, limit int) []int {
	if n == 0 {
		return nil
	}
	step := (n + limit - 1) / limit
	if step < 1 {
		step = 1
	}
	var idx []int
	for i := 0; i < n; i += step {
		idx = append(idx, i)
	}
	return idx
}

type svgChart struct {
	widget *SVGWidget
	once   sync.Once
}

func (c *svgChart) Destroy() {
	c.once.Do(func() {
		c.widget.live.Add(-1)
		c.widget.canvas.SetChart("")
	})
}
