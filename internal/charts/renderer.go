// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package charts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Fetcher loads trend points.
type Fetcher interface {
	Trends(ctx context.Context, sgOnly bool) ([]types.TrendPoint, error)
}

// Container is the element holding the chart.
type Container interface {
	ShowChart()
	HideChart()
}

// Widget draws a dataset and returns the live chart.
type Widget interface {
	Draw(ds Dataset) (Chart, error)
}

// Chart is a drawn chart. Destroy releases it; calling it twice is safe.
type Chart interface {
	Destroy()
}

// Renderer owns the single chart of a container.
type Renderer struct {
	mu        sync.Mutex
	fetch     Fetcher
	container Container
	widget    Widget
	keywords  []Keyword
	current   Chart
	logger    *slog.Logger
}

// NewRenderer returns a Renderer drawing the tracked Keywords.
func NewRenderer(fetch Fetcher, container Container, widget Widget, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		fetch:     fetch,
		container: container,
		widget:    widget,
		keywords:  Keywords,
		logger:    logger,
	}
}

// Update fetches trends and redraws. A fetch error or an empty response
// hides the container; otherwise the previous chart is destroyed before the
// new one is drawn, so at most one chart is ever live. Updates are
// serialised.
func (r *Renderer) Update(ctx context.Context, sgOnly bool) (Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	points, err := r.fetch.Trends(ctx, sgOnly)
	if err != nil {
		r.logger.Warn("trends unavailable", "sg_only", sgOnly, "error", err)
		r.container.HideChart()
		return Dataset{}, fmt.Errorf("fetching trends: %w", err)
	}
	if len(points) == 0 {
		r.logger.Debug("no trend data", "sg_only", sgOnly)
		r.container.HideChart()
		return Dataset{}, nil
	}

	ds := Reshape(points, r.keywords)
	r.container.ShowChart()

	if r.current != nil {
		r.current.Destroy()
		r.current = nil
	}
	chart, err := r.widget.Draw(ds)
	if err != nil {
		r.container.HideChart()
		return ds, fmt.Errorf("drawing trends chart: %w", err)
	}
	r.current = chart
	r.logger.Debug("trends chart drawn", "dates", len(ds.Labels), "points", len(points))
	return ds, nil
}

// Close destroys the live chart, if any.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Destroy()
		r.current = nil
	}
}
