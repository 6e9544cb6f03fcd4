// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// FormField is one labelled input in a FormModal: a single-line entry
// or a multi-line text area.
type FormField struct {
	Label     string
	Multiline bool

	lines   [][]rune // Each line is a slice of runes; single-line fields use lines[0] only.
	cursorY int
	cursorX int
}

// Value returns the field's current text.
func (field *FormField) Value() string {
	var parts []string
	for _, line := range field.lines {
		parts = append(parts, string(line))
	}
	return strings.Join(parts, "\n")
}

// SetValue replaces the field's text and puts the cursor at the end.
func (field *FormField) SetValue(value string) {
	field.lines = nil
	for _, line := range strings.Split(value, "\n") {
		field.lines = append(field.lines, []rune(line))
	}
	field.cursorY = len(field.lines) - 1
	field.cursorX = len(field.lines[field.cursorY])
}

// FormModal is a centered modal composing labelled input fields. Tab
// and shift+tab cycle field focus, Ctrl+D submits, Esc cancels. The
// save dialog is the one user; the mechanics are generic.
type FormModal struct {
	// Title is shown in the modal header.
	Title string

	// Fields in display order. At least one.
	Fields []FormField

	// Focus is the index of the focused field.
	Focus int

	// ErrorText, when non-empty, renders below the fields in the
	// error color. The host sets it on validation failure and the
	// modal stays open.
	ErrorText string
}

// NewFormModal creates a modal with the given title and fields, each
// field pre-filled with its initial value.
func NewFormModal(title string, fields []FormField) *FormModal {
	modal := &FormModal{Title: title, Fields: fields}
	for index := range modal.Fields {
		if modal.Fields[index].lines == nil {
			modal.Fields[index].lines = [][]rune{{}}
		}
	}
	return modal
}

// Value returns the text of the field at the given index.
func (modal *FormModal) Value(index int) string {
	return modal.Fields[index].Value()
}

// CycleFocus advances field focus, wrapping. A negative step cycles
// backwards.
func (modal *FormModal) CycleFocus(step int) {
	count := len(modal.Fields)
	modal.Focus = ((modal.Focus+step)%count + count) % count
}

// Update processes a key message for the focused field's editor. Tab
// cycling and submit/cancel keys are handled by the panel model before
// reaching here.
func (modal *FormModal) Update(message tea.KeyMsg) {
	field := &modal.Fields[modal.Focus]
	switch message.Type {
	case tea.KeyRunes, tea.KeySpace:
		for _, character := range message.Runes {
			field.insertRune(character)
		}
		if message.Type == tea.KeySpace && len(message.Runes) == 0 {
			field.insertRune(' ')
		}

	case tea.KeyEnter:
		if !field.Multiline {
			return
		}
		// Split the current line at the cursor.
		line := field.lines[field.cursorY]
		before := make([]rune, field.cursorX)
		copy(before, line[:field.cursorX])
		after := make([]rune, len(line)-field.cursorX)
		copy(after, line[field.cursorX:])

		field.lines[field.cursorY] = before
		newLines := make([][]rune, len(field.lines)+1)
		copy(newLines, field.lines[:field.cursorY+1])
		newLines[field.cursorY+1] = after
		copy(newLines[field.cursorY+2:], field.lines[field.cursorY+1:])
		field.lines = newLines
		field.cursorY++
		field.cursorX = 0

	case tea.KeyBackspace:
		if field.cursorX > 0 {
			line := field.lines[field.cursorY]
			field.lines[field.cursorY] = append(line[:field.cursorX-1], line[field.cursorX:]...)
			field.cursorX--
		} else if field.cursorY > 0 {
			// Merge with previous line.
			previousLine := field.lines[field.cursorY-1]
			currentLine := field.lines[field.cursorY]
			field.cursorX = len(previousLine)
			field.lines[field.cursorY-1] = append(previousLine, currentLine...)
			field.lines = append(field.lines[:field.cursorY], field.lines[field.cursorY+1:]...)
			field.cursorY--
		}

	case tea.KeyDelete:
		line := field.lines[field.cursorY]
		if field.cursorX < len(line) {
			field.lines[field.cursorY] = append(line[:field.cursorX], line[field.cursorX+1:]...)
		} else if field.cursorY < len(field.lines)-1 {
			nextLine := field.lines[field.cursorY+1]
			field.lines[field.cursorY] = append(line, nextLine...)
			field.lines = append(field.lines[:field.cursorY+1], field.lines[field.cursorY+2:]...)
		}

	case tea.KeyLeft:
		if field.cursorX > 0 {
			field.cursorX--
		} else if field.cursorY > 0 {
			field.cursorY--
			field.cursorX = len(field.lines[field.cursorY])
		}

	case tea.KeyRight:
		line := field.lines[field.cursorY]
		if field.cursorX < len(line) {
			field.cursorX++
		} else if field.cursorY < len(field.lines)-1 {
			field.cursorY++
			field.cursorX = 0
		}

	case tea.KeyUp:
		if field.cursorY > 0 {
			field.cursorY--
			if field.cursorX > len(field.lines[field.cursorY]) {
				field.cursorX = len(field.lines[field.cursorY])
			}
		}

	case tea.KeyDown:
		if field.cursorY < len(field.lines)-1 {
			field.cursorY++
			if field.cursorX > len(field.lines[field.cursorY]) {
				field.cursorX = len(field.lines[field.cursorY])
			}
		}

	case tea.KeyHome, tea.KeyCtrlA:
		field.cursorX = 0

	case tea.KeyEnd, tea.KeyCtrlE:
		field.cursorX = len(field.lines[field.cursorY])
	}
}

// insertRune inserts a single rune at the cursor position.
func (field *FormField) insertRune(character rune) {
	line := field.lines[field.cursorY]
	newLine := make([]rune, len(line)+1)
	copy(newLine, line[:field.cursorX])
	newLine[field.cursorX] = character
	copy(newLine[field.cursorX+1:], line[field.cursorX:])
	field.lines[field.cursorY] = newLine
	field.cursorX++
}

// Modal chrome overhead: 2 columns border + 2 columns padding = 4
// columns horizontal; 2 lines border + 1 title + 1 footer = 4 lines
// vertical, plus 1 label line per field.
const (
	formModalChromeWidth  = 4
	formModalChromeHeight = 4
	formModalMinInnerWidth = 36
	// multilineRows is the editor height for a multi-line field.
	formModalMultilineRows = 5
	// formModalMargin keeps a sliver of the underlying view visible.
	formModalMargin = 4
)

// Render produces the modal overlay lines for splicing onto the view.
// Returns the rendered lines and the anchor position (top-left corner
// in screen coordinates).
func (modal *FormModal) Render(theme Theme, screenWidth, screenHeight int) ([]string, int, int) {
	modalWidth := screenWidth - formModalMargin*2
	minWidth := formModalMinInnerWidth + formModalChromeWidth
	if modalWidth < minWidth {
		modalWidth = minWidth
	}
	if modalWidth > screenWidth {
		modalWidth = screenWidth
	}
	innerWidth := modalWidth - formModalChromeWidth

	backgroundStyle := lipgloss.NewStyle().
		Background(theme.OverlayBackground)
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.HeaderForeground).
		Background(theme.OverlayBackground)
	labelStyle := lipgloss.NewStyle().
		Foreground(theme.FaintText).
		Background(theme.OverlayBackground)
	labelFocusStyle := lipgloss.NewStyle().
		Foreground(theme.Accent).
		Bold(true).
		Background(theme.OverlayBackground)
	textStyle := lipgloss.NewStyle().
		Foreground(theme.NormalText).
		Background(theme.OverlayBackground)
	cursorStyle := lipgloss.NewStyle().
		Reverse(true)
	errorStyle := lipgloss.NewStyle().
		Foreground(theme.StatusError).
		Background(theme.OverlayBackground)
	footerStyle := lipgloss.NewStyle().
		Foreground(theme.HelpText).
		Background(theme.OverlayBackground)

	pad := func(line string) string {
		return padLine(line, innerWidth, backgroundStyle)
	}

	var contentLines []string
	contentLines = append(contentLines, pad(titleStyle.Render(modal.Title)))

	for fieldIndex := range modal.Fields {
		field := &modal.Fields[fieldIndex]
		focused := fieldIndex == modal.Focus

		label := labelStyle
		if focused {
			label = labelFocusStyle
		}
		contentLines = append(contentLines, pad(label.Render(field.Label)))

		rows := 1
		if field.Multiline {
			rows = formModalMultilineRows
		}

		// Scroll the editor when the cursor is past the visible rows.
		scrollOffset := 0
		if field.cursorY >= rows {
			scrollOffset = field.cursorY - rows + 1
		}

		for row := scrollOffset; row < scrollOffset+rows; row++ {
			var rendered string
			if row < len(field.lines) {
				line := field.lines[row]
				if focused && row == field.cursorY {
					if field.cursorX >= len(line) {
						rendered = textStyle.Render(string(line)) + cursorStyle.Render(" ")
					} else {
						before := textStyle.Render(string(line[:field.cursorX]))
						atCursor := cursorStyle.Render(string(line[field.cursorX : field.cursorX+1]))
						after := textStyle.Render(string(line[field.cursorX+1:]))
						rendered = before + atCursor + after
					}
				} else {
					rendered = textStyle.Render(string(line))
				}
			}
			contentLines = append(contentLines, pad(rendered))
		}
	}

	if modal.ErrorText != "" {
		text := modal.ErrorText
		if ansi.StringWidth(text) > innerWidth {
			text = ansi.Truncate(text, innerWidth-1, "…")
		}
		contentLines = append(contentLines, pad(errorStyle.Render(text)))
	}

	contentLines = append(contentLines, pad(footerStyle.Render("Tab next field  Ctrl+D save  Esc cancel")))

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Background(theme.OverlayBackground)

	rendered := borderStyle.Render(strings.Join(contentLines, "\n"))
	resultLines := strings.Split(rendered, "\n")
	renderedWidth := 0
	if len(resultLines) > 0 {
		renderedWidth = ansi.StringWidth(resultLines[0])
	}

	anchorX := (screenWidth - renderedWidth) / 2
	anchorY := (screenHeight - len(resultLines)) / 2
	if anchorX < 0 {
		anchorX = 0
	}
	if anchorY < 0 {
		anchorY = 0
	}

	return resultLines, anchorX, anchorY
}
