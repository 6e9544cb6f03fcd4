// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package chart

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/facet-analytics/facet/lib/panelui"
)

// Braille cells pack a 2x4 dot grid per character. Dot bit offsets by
// (x, y) within the cell, y counting from the top.
var brailleBits = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// renderLine draws the counts as a braille polyline.
func renderLine(input panelui.Input) (string, int, error) {
	geometry := computeLayout(input, maxBucketCount(input.Buckets), false)

	dotWidth := geometry.plotWidth * 2
	dotHeight := geometry.plotRows * 4
	grid := make([][]bool, dotHeight)
	for row := range grid {
		grid[row] = make([]bool, dotWidth)
	}

	// Plot each bucket, connecting consecutive points with vertical
	// interpolation so spikes stay visible.
	previousX, previousY := -1, -1
	for index, bucket := range input.Buckets {
		x := 0
		if len(input.Buckets) > 1 {
			x = index * (dotWidth - 1) / (len(input.Buckets) - 1)
		}
		y := dotHeight - 1
		if geometry.maxValue > 0 {
			y = dotHeight - 1 - int(bucket.Count*int64(dotHeight-1)/geometry.maxValue)
		}
		setDot(grid, x, y)
		if previousX >= 0 {
			interpolate(grid, previousX, previousY, x, y)
		}
		previousX, previousY = x, y
	}

	style := lipgloss.NewStyle().Foreground(input.Theme.Accent)
	var lines []string
	for row := 0; row < geometry.plotRows; row++ {
		line := geometry.gutter(row, input.Theme)
		var plot strings.Builder
		for cell := 0; cell < geometry.plotWidth; cell++ {
			plot.WriteRune(brailleCell(grid, cell, row))
		}
		lines = append(lines, line+style.Render(plot.String()))
	}
	lines = append(lines, geometry.axisLine(input.Theme))
	lines = append(lines, geometry.labelLine(input, input.Theme))
	return strings.Join(lines, "\n"), len(input.Buckets), nil
}

func setDot(grid [][]bool, x, y int) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) {
		grid[y][x] = true
	}
}

// interpolate fills the dots between two plotted points with a
// stepped line.
func interpolate(grid [][]bool, fromX, fromY, toX, toY int) {
	steps := toX - fromX
	if steps <= 0 {
		low, high := fromY, toY
		if low > high {
			low, high = high, low
		}
		for y := low; y <= high; y++ {
			setDot(grid, toX, y)
		}
		return
	}
	for step := 0; step <= steps; step++ {
		x := fromX + step
		y := fromY + (toY-fromY)*step/steps
		setDot(grid, x, y)
	}
}

// brailleCell folds a 2x4 dot block into one braille rune, or a space
// when the block is empty.
func brailleCell(grid [][]bool, cellX, cellY int) rune {
	var bits rune
	for dx := 0; dx < 2; dx++ {
		for dy := 0; dy < 4; dy++ {
			if grid[cellY*4+dy][cellX*2+dx] {
				bits |= brailleBits[dx][dy]
			}
		}
	}
	if bits == 0 {
		return ' '
	}
	return 0x2800 + bits
}
