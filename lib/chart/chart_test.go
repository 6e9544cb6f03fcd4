// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package chart

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/facet-analytics/facet/lib/panelui"
	"github.com/facet-analytics/facet/lib/tui"
)

func testInput(kind string) panelui.Input {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return panelui.Input{
		Buckets: []panelui.Bucket{
			{Start: start, Count: 100, Breakdown: []panelui.SeriesCount{
				{Name: "api", Count: 60}, {Name: "web", Count: 40},
			}},
			{Start: start.Add(time.Hour), Count: 400, Breakdown: []panelui.SeriesCount{
				{Name: "api", Count: 250}, {Name: "web", Count: 150},
			}},
			{Start: start.Add(2 * time.Hour), Count: 250, Breakdown: []panelui.SeriesCount{
				{Name: "api", Count: 200}, {Name: "web", Count: 50},
			}},
		},
		Total:    750,
		Kind:     kind,
		Interval: "1h",
		Theme:    tui.LightTheme,
		Width:    60,
		Height:   12,
	}
}

func runOutput(t *testing.T, command tea.Cmd) panelui.OutputMsg {
	t.Helper()
	if command == nil {
		t.Fatal("SetInput returned no command")
	}
	output, ok := command().(panelui.OutputMsg)
	if !ok {
		t.Fatal("command did not produce an OutputMsg")
	}
	return output
}

func TestBarChartRenders(t *testing.T) {
	model := New()
	output := runOutput(t, model.SetInput(testInput("bar")))

	if output.Kind != panelui.OutputRendered {
		t.Fatalf("output = %+v", output)
	}
	if output.Points != 3 {
		t.Errorf("points = %d, want 3", output.Points)
	}

	view := model.View(60, 12)
	lines := strings.Split(view, "\n")
	if len(lines) != 12 {
		t.Errorf("frame has %d lines, want 12", len(lines))
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width > 60 {
			t.Errorf("line %d overflows width 60 (%d)", index, width)
		}
	}

	plain := ansi.Strip(view)
	if !strings.Contains(plain, "█") {
		t.Error("bar chart should contain full block glyphs")
	}
	// Legend lists the breakdown series.
	if !strings.Contains(plain, "api") || !strings.Contains(plain, "web") {
		t.Error("legend should name the breakdown series")
	}
	// Y axis shows the max count, x axis the first bucket time.
	if !strings.Contains(plain, "400") {
		t.Error("y axis should show the max count")
	}
	if !strings.Contains(plain, "00:00") {
		t.Error("x axis should show the first bucket time")
	}
}

func TestLineChartUsesBraille(t *testing.T) {
	model := New()
	output := runOutput(t, model.SetInput(testInput("line")))
	if output.Kind != panelui.OutputRendered {
		t.Fatalf("output = %+v", output)
	}

	plain := ansi.Strip(model.View(60, 12))
	hasBraille := false
	for _, character := range plain {
		if character >= 0x2800 && character <= 0x28FF {
			hasBraille = true
			break
		}
	}
	if !hasBraille {
		t.Error("line chart should plot braille dots")
	}
}

func TestDegenerateAreaIsAnError(t *testing.T) {
	model := New()
	input := testInput("bar")
	input.Width = 0
	output := runOutput(t, model.SetInput(input))

	if output.Kind != panelui.OutputError || output.Err == nil {
		t.Fatalf("zero width should be a render error, got %+v", output)
	}
}

func TestNoBucketsRendersEmptyFrame(t *testing.T) {
	model := New()
	input := testInput("bar")
	input.Buckets = nil
	output := runOutput(t, model.SetInput(input))

	if output.Kind != panelui.OutputRendered {
		t.Fatalf("empty buckets must not be an error: %+v", output)
	}
	if output.Points != 0 {
		t.Errorf("points = %d, want 0", output.Points)
	}
	if !strings.Contains(ansi.Strip(model.View(60, 12)), "no data in range") {
		t.Error("empty frame should show the placeholder")
	}
}

func TestEditorAppliesKindChange(t *testing.T) {
	model := New()
	runOutput(t, model.SetInput(testInput("bar")))

	view := model.EditView(30, 10)
	if !strings.Contains(view, "bar") || !strings.Contains(view, "line") {
		t.Errorf("edit view should list the kinds:\n%s", view)
	}

	// Move to "line" and apply.
	_, _, _, changed := model.UpdateEdit(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if changed {
		t.Fatal("cursor movement is not a change")
	}
	_, _, input, changed := model.UpdateEdit(tea.KeyMsg{Type: tea.KeyEnter})
	if !changed || input.Kind != "line" {
		t.Fatalf("enter should apply kind line, got changed=%v input=%+v", changed, input)
	}

	// Applying the already-selected kind is a no-op.
	runOutput(t, model.SetInput(input))
	_, _, _, changed = model.UpdateEdit(tea.KeyMsg{Type: tea.KeyEnter})
	if changed {
		t.Error("re-applying the current kind should not report a change")
	}
}

func TestEditorClearsBreakdown(t *testing.T) {
	model := New()
	input := testInput("bar")
	input.Breakdown = "service.keyword"
	runOutput(t, model.SetInput(input))

	_, _, updated, changed := model.UpdateEdit(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if !changed || updated.Breakdown != "" {
		t.Fatalf("x should clear the breakdown, got changed=%v input=%+v", changed, updated)
	}
}
