// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/junegunn/fzf/src/util"
)

// DropdownOption is a single selectable item in a dropdown overlay.
type DropdownOption struct {
	Label string // Display text shown in the dropdown.
	Value string // Value reported to the host on selection.
}

// DropdownOverlay renders a floating selection menu anchored at a
// screen position. It captures all keyboard input while active:
// up/down navigate (wrapping), printable characters narrow the list
// with fuzzy filtering, enter selects, escape dismisses. The panel
// model owns the instance and routes input to it when a selector has
// focus.
type DropdownOverlay struct {
	Options []DropdownOption
	Cursor  int // Index into the filtered view.
	AnchorX int // Screen X coordinate of the dropdown's top-left corner.
	AnchorY int // Screen Y coordinate of the dropdown's top-left corner.
	Field   string // Which selector this dropdown drives ("interval", "breakdown", "suggestion").

	// MaxVisible caps the rendered option rows; longer lists scroll
	// with the cursor. Zero means no cap.
	MaxVisible int

	filter   []rune
	filtered []filteredOption
	scroll   int
	slab     *util.Slab
}

// filteredOption is one row of the filtered view: the option index
// plus the matched rune positions for highlighting.
type filteredOption struct {
	index     int
	score     int
	positions []int
}

// NewDropdownOverlay creates a dropdown over the given options with
// the cursor on the option whose Value equals current (or the first
// option when absent).
func NewDropdownOverlay(field string, options []DropdownOption, current string) *DropdownOverlay {
	dropdown := &DropdownOverlay{
		Options: options,
		Field:   field,
		slab:    NewFuzzySlab(),
	}
	dropdown.rebuildFiltered()
	for index, option := range options {
		if option.Value == current {
			dropdown.Cursor = index
			break
		}
	}
	dropdown.scrollToCursor()
	return dropdown
}

// Filter returns the current type-to-filter text.
func (dropdown *DropdownOverlay) Filter() string {
	return string(dropdown.filter)
}

// Type appends a character to the filter and re-narrows the list.
func (dropdown *DropdownOverlay) Type(character rune) {
	dropdown.filter = append(dropdown.filter, character)
	dropdown.rebuildFiltered()
}

// Backspace removes the last filter character. Returns false when the
// filter was already empty (the caller dismisses the dropdown).
func (dropdown *DropdownOverlay) Backspace() bool {
	if len(dropdown.filter) == 0 {
		return false
	}
	dropdown.filter = dropdown.filter[:len(dropdown.filter)-1]
	dropdown.rebuildFiltered()
	return true
}

// rebuildFiltered recomputes the filtered view. With no filter all
// options appear in declaration order; with a filter, matches are
// ordered by descending score.
func (dropdown *DropdownOverlay) rebuildFiltered() {
	dropdown.filtered = dropdown.filtered[:0]
	if len(dropdown.filter) == 0 {
		for index := range dropdown.Options {
			dropdown.filtered = append(dropdown.filtered, filteredOption{index: index})
		}
	} else {
		for index, option := range dropdown.Options {
			result := FuzzyMatch(option.Label, dropdown.filter, dropdown.slab)
			if result.Score > 0 {
				dropdown.filtered = append(dropdown.filtered, filteredOption{
					index:     index,
					score:     result.Score,
					positions: result.Positions,
				})
			}
		}
		sort.SliceStable(dropdown.filtered, func(a, b int) bool {
			return dropdown.filtered[a].score > dropdown.filtered[b].score
		})
	}

	if dropdown.Cursor >= len(dropdown.filtered) {
		dropdown.Cursor = 0
	}
	dropdown.scroll = 0
	dropdown.scrollToCursor()
}

// MoveUp moves the cursor up by one, wrapping to the bottom.
func (dropdown *DropdownOverlay) MoveUp() {
	if len(dropdown.filtered) == 0 {
		return
	}
	dropdown.Cursor--
	if dropdown.Cursor < 0 {
		dropdown.Cursor = len(dropdown.filtered) - 1
	}
	dropdown.scrollToCursor()
}

// MoveDown moves the cursor down by one, wrapping to the top.
func (dropdown *DropdownOverlay) MoveDown() {
	if len(dropdown.filtered) == 0 {
		return
	}
	dropdown.Cursor++
	if dropdown.Cursor >= len(dropdown.filtered) {
		dropdown.Cursor = 0
	}
	dropdown.scrollToCursor()
}

// Selected returns the currently highlighted option. The second
// return is false when the filter has eliminated every option.
func (dropdown *DropdownOverlay) Selected() (DropdownOption, bool) {
	if len(dropdown.filtered) == 0 || dropdown.Cursor >= len(dropdown.filtered) {
		return DropdownOption{}, false
	}
	return dropdown.Options[dropdown.filtered[dropdown.Cursor].index], true
}

// visibleRows returns how many option rows render.
func (dropdown *DropdownOverlay) visibleRows() int {
	rows := len(dropdown.filtered)
	if dropdown.MaxVisible > 0 && rows > dropdown.MaxVisible {
		rows = dropdown.MaxVisible
	}
	return rows
}

// scrollToCursor keeps the cursor row inside the visible window.
func (dropdown *DropdownOverlay) scrollToCursor() {
	rows := dropdown.visibleRows()
	if rows == 0 {
		dropdown.scroll = 0
		return
	}
	if dropdown.Cursor < dropdown.scroll {
		dropdown.scroll = dropdown.Cursor
	}
	if dropdown.Cursor >= dropdown.scroll+rows {
		dropdown.scroll = dropdown.Cursor - rows + 1
	}
}

// Width returns the total visible width of the rendered dropdown in
// columns. Matches the width used by Render; needed for anchoring the
// overlay inside the panel.
func (dropdown *DropdownOverlay) Width() int {
	maxLabelWidth := 0
	for _, option := range dropdown.Options {
		labelWidth := ansi.StringWidth(option.Label)
		if labelWidth > maxLabelWidth {
			maxLabelWidth = labelWidth
		}
	}
	filterWidth := 2 + len(dropdown.filter) // "/" + text + cursor cell.
	if filterWidth > maxLabelWidth {
		maxLabelWidth = filterWidth
	}
	// Layout: " > LABEL " — 3 chars prefix (pad + marker + space),
	// then label, then 1 char padding on the right.
	return 3 + maxLabelWidth + 1
}

// Height returns the rendered line count: option rows plus the filter
// row when a filter is active, minimum one row.
func (dropdown *DropdownOverlay) Height() int {
	rows := dropdown.visibleRows()
	if rows == 0 {
		rows = 1 // "no match" row
	}
	if len(dropdown.filter) > 0 {
		rows++
	}
	return rows
}

// Render produces the dropdown lines for overlay splicing. Each line
// has the same visible width and a solid background for separation
// from the underlying content. The highlighted option uses a
// contrasting background; fuzzy-matched characters use the theme's
// match color.
func (dropdown *DropdownOverlay) Render(theme Theme) []string {
	totalWidth := dropdown.Width()

	backgroundStyle := lipgloss.NewStyle().
		Background(theme.OverlayBackground).
		Foreground(theme.NormalText)
	selectedStyle := lipgloss.NewStyle().
		Background(theme.SelectedBackground).
		Foreground(theme.SelectedForeground)
	matchStyle := lipgloss.NewStyle().
		Background(theme.OverlayBackground).
		Foreground(theme.MatchForeground).
		Bold(true)
	matchSelectedStyle := lipgloss.NewStyle().
		Background(theme.SelectedBackground).
		Foreground(theme.MatchForeground).
		Bold(true)
	filterStyle := lipgloss.NewStyle().
		Background(theme.OverlayBackground).
		Foreground(theme.Accent)

	var lines []string

	if len(dropdown.filter) > 0 {
		content := "/" + string(dropdown.filter)
		line := filterStyle.Render(" " + content)
		lines = append(lines, padLine(line, totalWidth, backgroundStyle))
	}

	rows := dropdown.visibleRows()
	if rows == 0 {
		line := backgroundStyle.Render(" (no match)")
		return append(lines, padLine(line, totalWidth, backgroundStyle))
	}

	for row := dropdown.scroll; row < dropdown.scroll+rows; row++ {
		entry := dropdown.filtered[row]
		option := dropdown.Options[entry.index]
		selected := row == dropdown.Cursor

		marker := " "
		if selected {
			marker = ">"
		}

		base := backgroundStyle
		highlight := matchStyle
		if selected {
			base = selectedStyle
			highlight = matchSelectedStyle
		}

		line := base.Render(" "+marker+" ") + renderHighlighted(option.Label, entry.positions, base, highlight)
		lines = append(lines, padLine(line, totalWidth, base))
	}

	return lines
}

// renderHighlighted renders label text with the matched rune positions
// in the highlight style and the rest in the base style.
func renderHighlighted(label string, positions []int, base, highlight lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(label)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}

	var builder strings.Builder
	for index, character := range []rune(label) {
		if matched[index] {
			builder.WriteString(highlight.Render(string(character)))
		} else {
			builder.WriteString(base.Render(string(character)))
		}
	}
	return builder.String()
}

// padLine extends a styled line to the target visible width with
// background-colored spaces.
func padLine(line string, totalWidth int, background lipgloss.Style) string {
	lineWidth := ansi.StringWidth(line)
	if lineWidth < totalWidth {
		line += background.Render(strings.Repeat(" ", totalWidth-lineWidth))
	}
	return line
}
