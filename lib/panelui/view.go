// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/facet-analytics/facet/lib/tui"
)

// Chrome line counts around the chart body: header, action row,
// status line, help line.
const chromeLines = 4

// flyoutRatio is the edit flyout's share of the panel width.
const flyoutRatio = 0.4

func (model *Model) bodyWidth() int {
	if model.focusRegion == FocusEditFlyout {
		return model.width - model.flyoutWidth()
	}
	return model.width
}

func (model *Model) bodyHeight() int {
	height := model.height - chromeLines
	if model.options.Description != "" {
		// The rendered description sits under the body; reserve a
		// conservative strip for it.
		height -= 3
	}
	if height < 3 {
		height = 3
	}
	return height
}

func (model *Model) flyoutWidth() int {
	width := int(float64(model.width) * flyoutRatio)
	if width < 24 {
		width = 24
	}
	if width > model.width {
		width = model.width
	}
	return width
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, model.renderHeader())

	if !model.hidden && chartUsable(model.options) {
		body := model.embeddable.View(model.bodyWidth(), model.bodyHeight())
		lines = append(lines, strings.Split(body, "\n")...)
	}

	if actionsVisible(model.options, model.hidden) {
		lines = append(lines, model.renderActionRow())
	}

	if description := model.renderDescriptionBlock(); description != "" {
		lines = append(lines, strings.Split(description, "\n")...)
	}

	lines = append(lines, model.renderStatusLine())
	lines = append(lines, model.renderHelpLine())

	view := strings.Join(lines, "\n")

	if model.focusRegion == FocusEditFlyout {
		view = model.spliceEditFlyout(view)
	}
	if model.dropdown != nil {
		view = tui.Compose(view, model.dropdown.Render(model.theme),
			model.dropdown.AnchorX, model.dropdown.AnchorY)
	}
	if model.saveDialog != nil {
		modalLines, anchorX, anchorY := model.saveDialog.Render(
			model.theme, model.width, model.height)
		view = tui.Compose(view, modalLines, anchorX, anchorY)
	}
	return view
}

// renderHeader draws the title row: title, hit count, loading
// spinner, and the selector cluster.
func (model *Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	help := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	parts := []string{titleStyle.Render(model.options.Title)}

	if model.options.ShowHitCount {
		count := fmt.Sprintf("%d hits", model.lastTotal)
		if model.totalStale {
			count = "~" + count
		}
		parts = append(parts, faint.Render(count))
	}
	if model.querying() {
		parts = append(parts, model.spinner.View())
	}

	// Selector cluster. Faint while a query is in flight, since the
	// selectors are disabled until it completes.
	selectorStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	if model.querying() {
		selectorStyle = faint
	}
	if selectorVisible(model.options, model.options.ShowIntervalSelector) {
		parts = append(parts, selectorStyle.Render("interval "+model.interval)+help.Render(" [i]"))
	}
	if selectorVisible(model.options, model.options.ShowBreakdownSelector) {
		label := model.breakdown
		if label == "" {
			label = "(none)"
		}
		parts = append(parts, selectorStyle.Render("breakdown "+label)+help.Render(" [b]"))
	}
	if toggleVisible(model.options) {
		hint := "hide"
		if model.hidden {
			hint = "show"
		}
		parts = append(parts, help.Render("[t] "+hint))
	}

	header := strings.Join(parts, "  ")
	return ansi.Truncate(header, model.width, "…")
}

// renderActionRow draws the action buttons. The row renders exactly
// when actionsVisible is true; individual buttons are further gated
// by their own capability.
func (model *Model) renderActionRow() string {
	help := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	accent := lipgloss.NewStyle().Foreground(model.theme.Accent)

	parts := []string{accent.Render("actions")}
	if canSave(model.options, model.hidden) {
		parts = append(parts, help.Render("[w]")+" save")
	}
	if canEdit(model.options, model.hidden) {
		parts = append(parts, help.Render("[e]")+" edit")
	}
	if selectorVisible(model.options, model.options.ShowSuggestionSelector) {
		parts = append(parts, help.Render("[s]")+" suggest")
	}
	return ansi.Truncate(strings.Join(parts, "  "), model.width, "…")
}

// renderDescriptionBlock renders the markdown description when the
// chart body is visible.
func (model *Model) renderDescriptionBlock() string {
	if model.options.Description == "" || model.hidden {
		return ""
	}
	return renderDescription(model.options.Description, model.theme, model.bodyWidth())
}

func (model *Model) renderStatusLine() string {
	if model.status == "" {
		return ""
	}
	color := model.theme.FaintText
	switch model.statusSeverity {
	case "success":
		color = model.theme.StatusSuccess
	case "warning":
		color = model.theme.StatusWarning
	case "error":
		color = model.theme.StatusError
	}
	style := lipgloss.NewStyle().Foreground(color)
	return ansi.Truncate(style.Render(model.status), model.width, "…")
}

func (model *Model) renderHelpLine() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	bindings := []string{"q quit"}
	if toggleVisible(model.options) {
		bindings = append(bindings, "t toggle")
	}
	if selectorVisible(model.options, model.options.ShowIntervalSelector) {
		bindings = append(bindings, "i interval")
	}
	if selectorVisible(model.options, model.options.ShowBreakdownSelector) {
		bindings = append(bindings, "b breakdown")
	}
	if selectorVisible(model.options, model.options.ShowSuggestionSelector) {
		bindings = append(bindings, "s suggest")
	}
	if canSave(model.options, model.hidden) {
		bindings = append(bindings, "w save")
	}
	if canEdit(model.options, model.hidden) {
		bindings = append(bindings, "e edit")
	}
	if chartUsable(model.options) {
		bindings = append(bindings, "r refresh")
	}
	return ansi.Truncate(style.Render(strings.Join(bindings, " · ")), model.width, "…")
}

// spliceEditFlyout overlays the right-hand editor flyout: a bordered
// strip taking flyoutRatio of the width, with the editor content in a
// scrollable viewport and a scrollbar on its right edge.
func (model *Model) spliceEditFlyout(view string) string {
	editor, ok := model.embeddable.(Editor)
	if !ok {
		return view
	}

	width := model.flyoutWidth()
	innerWidth := width - 3 // border, scrollbar, padding
	height := model.bodyHeight()

	model.editViewport.SetContent(editor.EditView(innerWidth, height))
	content := model.editViewport.View()
	contentLines := strings.Split(content, "\n")

	totalLines := model.editViewport.TotalLineCount()
	scrollbar := tui.RenderScrollbar(model.theme, height, totalLines,
		height, model.editViewport.YOffset, true)
	scrollbarLines := strings.Split(scrollbar, "\n")

	border := lipgloss.NewStyle().Foreground(model.theme.Accent)
	flyout := make([]string, 0, height+2)
	flyout = append(flyout,
		border.Render("┌"+strings.Repeat("─", width-2)+"┐"))
	for row := 0; row < height; row++ {
		line := ""
		if row < len(contentLines) {
			line = contentLines[row]
		}
		line = ansi.Truncate(line, innerWidth, "…")
		padding := innerWidth - ansi.StringWidth(line)
		if padding < 0 {
			padding = 0
		}
		bar := "│"
		if row < len(scrollbarLines) {
			bar = scrollbarLines[row]
		}
		flyout = append(flyout,
			border.Render("│")+line+strings.Repeat(" ", padding)+bar)
	}
	flyout = append(flyout,
		border.Render("└"+strings.Repeat("─", width-2)+"┘"))

	return tui.Compose(view, flyout, model.width-width, 1)
}
