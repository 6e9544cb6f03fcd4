// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func saveDialog() *FormModal {
	return NewFormModal("Save Chart", []FormField{
		{Label: "Title"},
		{Label: "Description", Multiline: true},
	})
}

func typeString(modal *FormModal, text string) {
	for _, character := range text {
		modal.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{character}})
	}
}

func TestFormModalTypingGoesToFocusedField(t *testing.T) {
	modal := saveDialog()
	typeString(modal, "Errors by host")

	if got := modal.Value(0); got != "Errors by host" {
		t.Errorf("title = %q", got)
	}
	if got := modal.Value(1); got != "" {
		t.Errorf("description should be untouched, got %q", got)
	}
}

func TestFormModalTabCyclesFocus(t *testing.T) {
	modal := saveDialog()
	modal.CycleFocus(1)
	typeString(modal, "hourly error counts")
	if got := modal.Value(1); got != "hourly error counts" {
		t.Errorf("description = %q", got)
	}

	modal.CycleFocus(1) // wraps back to the title
	if modal.Focus != 0 {
		t.Errorf("focus = %d after wrap, want 0", modal.Focus)
	}
	modal.CycleFocus(-1)
	if modal.Focus != 1 {
		t.Errorf("focus = %d after reverse cycle, want 1", modal.Focus)
	}
}

func TestFormModalEnterOnlyBreaksMultiline(t *testing.T) {
	modal := saveDialog()
	typeString(modal, "one")
	modal.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeString(modal, "two")
	if got := modal.Value(0); got != "onetwo" {
		t.Errorf("single-line field must ignore Enter, got %q", got)
	}

	modal.CycleFocus(1)
	typeString(modal, "first")
	modal.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeString(modal, "second")
	if got := modal.Value(1); got != "first\nsecond" {
		t.Errorf("multiline field should split on Enter, got %q", got)
	}
}

func TestFormModalBackspaceMergesLines(t *testing.T) {
	modal := saveDialog()
	modal.CycleFocus(1)
	typeString(modal, "ab")
	modal.Update(tea.KeyMsg{Type: tea.KeyEnter})
	modal.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	typeString(modal, "c")
	if got := modal.Value(1); got != "abc" {
		t.Errorf("backspace at line start should merge lines, got %q", got)
	}
}

func TestFormModalSetValuePrefills(t *testing.T) {
	modal := saveDialog()
	modal.Fields[0].SetValue("Requests over time")
	typeString(modal, "!")
	if got := modal.Value(0); got != "Requests over time!" {
		t.Errorf("cursor should land at the end of the prefill, got %q", got)
	}
}

func TestFormModalRenderShowsErrorAndTitle(t *testing.T) {
	modal := saveDialog()
	modal.ErrorText = "title is required"
	lines, anchorX, anchorY := modal.Render(LightTheme, 80, 24)

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Save Chart") {
		t.Error("render should include the modal title")
	}
	if !strings.Contains(joined, "title is required") {
		t.Error("render should include the error text")
	}
	if anchorX < 0 || anchorY < 0 {
		t.Errorf("anchor (%d,%d) should be clamped to the screen", anchorX, anchorY)
	}
}
