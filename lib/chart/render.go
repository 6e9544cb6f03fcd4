// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package chart

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/facet-analytics/facet/lib/panelui"
	"github.com/facet-analytics/facet/lib/tui"
)

// Minimum area a chart needs: gutter plus a few columns, two plot
// rows plus the axis and label rows.
const (
	minChartWidth  = 16
	minChartHeight = 4
)

// render draws the input into a frame, returning the frame and the
// number of data points plotted. Degenerate dimensions are an error;
// an empty bucket list is not, it renders an empty frame.
func render(input panelui.Input) (string, int, error) {
	if input.Width < minChartWidth || input.Height < minChartHeight {
		return "", 0, fmt.Errorf("chart: render area %dx%d is too small",
			input.Width, input.Height)
	}
	if len(input.Buckets) == 0 {
		return emptyFrame(input), 0, nil
	}
	if input.Kind == "line" {
		return renderLine(input)
	}
	return renderBar(input)
}

// emptyFrame fills the area with a centered placeholder.
func emptyFrame(input panelui.Input) string {
	faint := lipgloss.NewStyle().Foreground(input.Theme.FaintText)
	lines := make([]string, input.Height)
	message := "no data in range"
	padding := (input.Width - len(message)) / 2
	if padding < 0 {
		padding = 0
	}
	lines[input.Height/2] = strings.Repeat(" ", padding) + faint.Render(message)
	return strings.Join(lines, "\n")
}

// layout is the shared frame geometry: a y-axis gutter on the left,
// the plot area, an x-axis label row at the bottom, and a legend row
// when the chart is stacked.
type layout struct {
	gutterWidth int
	plotWidth   int
	plotRows    int
	maxValue    int64
	hasLegend   bool
}

func computeLayout(input panelui.Input, maxValue int64, hasLegend bool) layout {
	geometry := layout{
		gutterWidth: len(formatCount(maxValue)) + 2,
		maxValue:    maxValue,
		hasLegend:   hasLegend,
	}
	geometry.plotWidth = input.Width - geometry.gutterWidth
	geometry.plotRows = input.Height - 2 // axis row + label row
	if hasLegend {
		geometry.plotRows--
	}
	if geometry.plotRows < 1 {
		geometry.plotRows = 1
	}
	return geometry
}

// gutter renders the y-axis cell for a plot row: the max count at the
// top, the midpoint halfway down, a bare axis line elsewhere.
func (geometry layout) gutter(row int, theme tui.Theme) string {
	axis := lipgloss.NewStyle().Foreground(theme.AxisColor)
	label := ""
	switch row {
	case 0:
		label = formatCount(geometry.maxValue)
	case geometry.plotRows / 2:
		if geometry.plotRows > 3 {
			label = formatCount(geometry.maxValue / 2)
		}
	}
	padded := strings.Repeat(" ", geometry.gutterWidth-2-len(label)) + label
	if label == "" {
		return padded + axis.Render(" │")
	}
	return padded + axis.Render(" ┤")
}

// axisLine renders the bottom axis row.
func (geometry layout) axisLine(theme tui.Theme) string {
	axis := lipgloss.NewStyle().Foreground(theme.AxisColor)
	return strings.Repeat(" ", geometry.gutterWidth-1) +
		axis.Render("└"+strings.Repeat("─", geometry.plotWidth))
}

// labelLine renders the x-axis time labels: first bucket on the
// left, last bucket on the right.
func (geometry layout) labelLine(input panelui.Input, theme tui.Theme) string {
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	first := timeLabel(input.Buckets[0].Start, input.Interval)
	last := timeLabel(input.Buckets[len(input.Buckets)-1].Start, input.Interval)

	gap := geometry.plotWidth - len(first) - len(last)
	if gap < 1 {
		last = ""
		gap = geometry.plotWidth - len(first)
		if gap < 0 {
			gap = 0
		}
	}
	return strings.Repeat(" ", geometry.gutterWidth) +
		faint.Render(first) + strings.Repeat(" ", gap) + faint.Render(last)
}

// timeLabel formats a bucket start for the x axis: day-scale
// intervals show the date, finer ones the clock time.
func timeLabel(start time.Time, interval string) string {
	if strings.HasSuffix(interval, "d") || strings.HasSuffix(interval, "w") {
		return start.Format("Jan 02")
	}
	return start.Format("15:04")
}

func formatCount(value int64) string {
	switch {
	case value >= 10_000_000:
		return fmt.Sprintf("%dM", value/1_000_000)
	case value >= 10_000:
		return fmt.Sprintf("%dk", value/1_000)
	default:
		return fmt.Sprintf("%d", value)
	}
}

// collectSeries returns the breakdown series names in first-seen
// order, merging overflow beyond the theme palette into "other".
func collectSeries(buckets []panelui.Bucket, limit int) []string {
	var names []string
	seen := make(map[string]bool)
	overflow := false
	for _, bucket := range buckets {
		for _, series := range bucket.Breakdown {
			if seen[series.Name] {
				continue
			}
			if len(names) >= limit {
				overflow = true
				continue
			}
			seen[series.Name] = true
			names = append(names, series.Name)
		}
	}
	if overflow {
		names = append(names, "other")
	}
	return names
}

// legendLine renders one swatch per series, truncated to the frame
// width.
func legendLine(series []string, theme tui.Theme, width int) string {
	var parts []string
	for index, name := range series {
		swatch := lipgloss.NewStyle().Foreground(theme.SeriesColor(index))
		parts = append(parts, swatch.Render("■")+" "+name)
	}
	return ansi.Truncate(strings.Join(parts, "  "), width, "…")
}
