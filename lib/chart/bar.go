// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package chart

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/facet-analytics/facet/lib/panelui"
)

// partialBlocks are the eighth-height glyphs for a column's top cell.
var partialBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇'}

// column is one plotted bar: a total and the per-series cumulative
// boundaries used to color stacked cells.
type column struct {
	total int64
	// cumulative[i] is the running total through series i.
	cumulative []int64
}

// renderBar draws the column chart: one column per plot cell, buckets
// merged left to right when there are more buckets than columns, each
// column stacked by breakdown series.
func renderBar(input panelui.Input) (string, int, error) {
	series := collectSeries(input.Buckets, len(input.Theme.SeriesColors)-1)
	geometry := computeLayout(input, maxBucketCount(input.Buckets), len(series) > 0)

	columns := buildColumns(input.Buckets, series, geometry.plotWidth)

	var lines []string
	for row := 0; row < geometry.plotRows; row++ {
		line := geometry.gutter(row, input.Theme)
		for _, col := range columns {
			line += renderBarCell(col, series, row, geometry, input)
		}
		lines = append(lines, line)
	}
	lines = append(lines, geometry.axisLine(input.Theme))
	lines = append(lines, geometry.labelLine(input, input.Theme))
	if geometry.hasLegend {
		lines = append(lines, legendLine(series, input.Theme, input.Width))
	}
	return strings.Join(lines, "\n"), len(input.Buckets), nil
}

func maxBucketCount(buckets []panelui.Bucket) int64 {
	var max int64 = 1
	for _, bucket := range buckets {
		if bucket.Count > max {
			max = bucket.Count
		}
	}
	return max
}

// buildColumns merges buckets into at most plotWidth columns. Each
// column sums the counts of the buckets it covers, per series.
func buildColumns(buckets []panelui.Bucket, series []string, plotWidth int) []column {
	count := len(buckets)
	if count > plotWidth {
		count = plotWidth
	}

	seriesIndex := make(map[string]int, len(series))
	for index, name := range series {
		seriesIndex[name] = index
	}
	otherIndex := -1
	if len(series) > 0 && series[len(series)-1] == "other" {
		otherIndex = len(series) - 1
	}

	columns := make([]column, count)
	for index := range columns {
		from := index * len(buckets) / count
		to := (index + 1) * len(buckets) / count

		totals := make([]int64, len(series))
		var unattributed int64
		for _, bucket := range buckets[from:to] {
			columns[index].total += bucket.Count
			var attributed int64
			for _, slice := range bucket.Breakdown {
				position, known := seriesIndex[slice.Name]
				if !known {
					position = otherIndex
				}
				if position >= 0 {
					totals[position] += slice.Count
					attributed += slice.Count
				}
			}
			if remainder := bucket.Count - attributed; remainder > 0 && otherIndex >= 0 {
				totals[otherIndex] += remainder
			} else if remainder > 0 {
				unattributed += remainder
			}
		}
		_ = unattributed // Unstacked charts color the whole column uniformly.

		columns[index].cumulative = make([]int64, len(series))
		var running int64
		for position, total := range totals {
			running += total
			columns[index].cumulative[position] = running
		}
	}
	return columns
}

// renderBarCell draws one character cell of one column. Rows count
// from the top; cell heights are measured in eighths from the bottom.
func renderBarCell(col column, series []string, row int, geometry layout, input panelui.Input) string {
	if geometry.maxValue <= 0 || col.total <= 0 {
		return " "
	}

	totalEighths := col.total * int64(geometry.plotRows) * 8 / geometry.maxValue
	cellBottom := int64(geometry.plotRows-1-row) * 8
	cellFill := totalEighths - cellBottom
	if cellFill <= 0 {
		return " "
	}

	glyph := "█"
	if cellFill < 8 {
		glyph = string(partialBlocks[cellFill])
	}

	color := input.Theme.Accent
	if len(series) > 0 {
		// Color by the series whose stacked band covers the cell's
		// midpoint.
		midpoint := (cellBottom + minInt64(cellFill, 8)/2) * geometry.maxValue / (int64(geometry.plotRows) * 8)
		for position, boundary := range col.cumulative {
			if midpoint < boundary {
				color = input.Theme.SeriesColor(position)
				break
			}
		}
	}
	return lipgloss.NewStyle().Foreground(color).Render(glyph)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
