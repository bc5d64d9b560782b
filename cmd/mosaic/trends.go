// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pdiddy/mosaic/internal/charts"
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show daily keyword trend scores",
	Long: `Trends fetches the daily scores of the tracked mental-health keywords and
prints one sparkline per keyword with its latest score. Weekend columns are
listed below the table. Use --svg to write the full line chart instead.`,
	RunE: runTrends,
}

func init() {
	trendsCmd.Flags().Bool("sg-only", false, "only Singapore-based posts")
	trendsCmd.Flags().String("svg", "", "write the trend chart as SVG to this file")
	trendsCmd.Flags().Int("width", 960, "SVG width in pixels")
	trendsCmd.Flags().Int("height", 320, "SVG height in pixels")

	rootCmd.AddCommand(trendsCmd)
}

// svgFile is a chart canvas that writes every non-empty drawing to a file.
type svgFile struct {
	path string
	err  error
}

func (f *svgFile) SetChart(svg string) {
	if svg == "" {
		return
	}
	f.err = os.WriteFile(f.path, []byte(svg), 0o644)
}

// noContainer ignores visibility changes; the terminal has no chart panel.
type noContainer struct{}

func (noContainer) ShowChart() {}
func (noContainer) HideChart() {}

func runTrends(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	svgPath, _ := cmd.Flags().GetString("svg")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	client := newClient(cfg)

	if svgPath != "" {
		canvas := &svgFile{path: svgPath}
		renderer := charts.NewRenderer(client, noContainer{}, charts.NewSVGWidget(canvas, width, height), logger)
		ds, err := renderer.Update(cmd.Context(), cfg.Search.SGOnly)
		if err != nil {
			return err
		}
		if ds.Empty() {
			fmt.Println("No trend data.")
			return nil
		}
		if canvas.err != nil {
			return fmt.Errorf("writing chart: %w", canvas.err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d days)\n", svgPath, len(ds.Labels))
		return nil
	}

	points, err := client.Trends(cmd.Context(), cfg.Search.SGOnly)
	if err != nil {
		return err
	}
	ds := charts.Reshape(points, charts.Keywords)
	if ds.Empty() {
		fmt.Println("No trend data.")
		return nil
	}

	top := ds.Max()
	fmt.Printf("%s .. %s\n", ds.Labels[0], ds.Labels[len(ds.Labels)-1])
	for _, s := range ds.Series {
		latest := "-"
		if v, ok := charts.Latest(s.Values); ok {
			latest = strconv.FormatFloat(v, 'f', 1, 64)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color))
		fmt.Printf("%-14s %s %6s\n", s.Label, style.Render(charts.Sparkline(s.Values, top)), latest)
	}

	if weekends := charts.WeekendColumns(ds.Labels); len(weekends) > 0 {
		fmt.Print("Weekends:")
		for _, i := range weekends {
			fmt.Print(" ", ds.Labels[i])
		}
		fmt.Println()
	}
	return nil
}
