// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package chart is the built-in chart embeddable: it renders panelui
// inputs as a column chart (block glyphs, stacked breakdown segments)
// or a line chart (braille), and implements the Editor capability so
// the panel's edit flyout works without an external widget.
package chart

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facet-analytics/facet/lib/panelui"
)

// kinds the editor cycles through.
var kinds = []string{"bar", "line"}

// Model implements panelui.Embeddable and panelui.Editor.
type Model struct {
	input panelui.Input
	frame string

	// Editor state: cursor into kinds.
	editCursor int
}

// New creates an empty chart. The first SetInput renders it.
func New() *Model {
	return &Model{}
}

// SetInput implements panelui.Embeddable. Rendering happens here, so
// View is a cheap string return; the returned command reports the
// outcome to the panel.
func (model *Model) SetInput(input panelui.Input) tea.Cmd {
	model.input = input
	for index, kind := range kinds {
		if kind == input.Kind {
			model.editCursor = index
		}
	}

	start := time.Now()
	frame, points, err := render(input)
	elapsed := time.Since(start)
	if err != nil {
		model.frame = ""
		return func() tea.Msg {
			return panelui.OutputMsg{Kind: panelui.OutputError, Err: err, Elapsed: elapsed}
		}
	}
	model.frame = frame
	return func() tea.Msg {
		return panelui.OutputMsg{Kind: panelui.OutputRendered, Points: points, Elapsed: elapsed}
	}
}

// Update implements panelui.Embeddable. The chart has no internal
// animation; everything arrives through SetInput.
func (model *Model) Update(message tea.Msg) (panelui.Embeddable, tea.Cmd) {
	return model, nil
}

// View implements panelui.Embeddable. Re-renders only when the panel
// asks for different dimensions than the last input carried.
func (model *Model) View(width, height int) string {
	if width != model.input.Width || height != model.input.Height {
		input := model.input
		input.Width = width
		input.Height = height
		if frame, _, err := render(input); err == nil {
			return frame
		}
	}
	return model.frame
}

// EditView implements panelui.Editor: a kind picker plus the current
// breakdown, rendered as plain text for the flyout viewport.
func (model *Model) EditView(width, height int) string {
	view := "Chart kind\n\n"
	for index, kind := range kinds {
		marker := "  "
		if index == model.editCursor {
			marker = "> "
		}
		selected := " "
		if kind == model.input.Kind {
			selected = "*"
		}
		view += fmt.Sprintf("%s(%s) %s\n", marker, selected, kind)
	}
	view += "\nBreakdown\n\n"
	if model.input.Breakdown == "" {
		view += "  (none)\n"
	} else {
		view += "  " + model.input.Breakdown + "\n  press x to clear\n"
	}
	view += "\nj/k move · Enter apply"
	return view
}

// UpdateEdit implements panelui.Editor. Enter applies the highlighted
// kind, x clears the breakdown; both report a changed input.
func (model *Model) UpdateEdit(message tea.KeyMsg) (panelui.Embeddable, tea.Cmd, panelui.Input, bool) {
	switch {
	case message.Type == tea.KeyUp || (message.Type == tea.KeyRunes && len(message.Runes) == 1 && message.Runes[0] == 'k'):
		if model.editCursor > 0 {
			model.editCursor--
		}

	case message.Type == tea.KeyDown || (message.Type == tea.KeyRunes && len(message.Runes) == 1 && message.Runes[0] == 'j'):
		if model.editCursor < len(kinds)-1 {
			model.editCursor++
		}

	case message.Type == tea.KeyRunes && len(message.Runes) == 1 && message.Runes[0] == 'x':
		if model.input.Breakdown == "" {
			break
		}
		input := model.input
		input.Breakdown = ""
		return model, nil, input, true

	case message.Type == tea.KeyEnter:
		kind := kinds[model.editCursor]
		if kind == model.input.Kind {
			break
		}
		input := model.input
		input.Kind = kind
		return model, nil, input, true
	}
	return model, nil, panelui.Input{}, false
}
