// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestActionRowVisibilityGrid drives the full grid of flag
// combinations and checks that the rendered view contains the action
// button row exactly when actionsVisible reports true.
func TestActionRowVisibilityGrid(t *testing.T) {
	booleans := []bool{false, true}
	for _, available := range booleans {
		for _, hasSource := range booleans {
			for _, hasEmbeddable := range booleans {
				for _, hidden := range booleans {
					for _, readOnly := range booleans {
						options := Options{
							Title:          "Grid",
							ChartAvailable: available,
							HideChart:      hidden,
							ReadOnly:       readOnly,
						}
						if hasSource {
							options.Source = NewStaticSource(fixtureSnapshot())
						}
						if hasEmbeddable {
							options.Embeddable = &stubEmbeddable{}
						}

						want := available && hasSource && hasEmbeddable && !hidden && !readOnly
						if got := actionsVisible(options, hidden); got != want {
							t.Fatalf("actionsVisible(%+v, hidden=%v) = %v, want %v",
								options, hidden, got, want)
						}

						model := New(options)
						updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
						view := updated.(Model).View()
						if got := strings.Contains(view, "actions"); got != want {
							t.Errorf("available=%v source=%v embeddable=%v hidden=%v readOnly=%v: "+
								"action row rendered=%v, want %v",
								available, hasSource, hasEmbeddable, hidden, readOnly, got, want)
						}
					}
				}
			}
		}
	}
}

func TestDerivedFlags(t *testing.T) {
	editor := &stubEditor{}
	plain := &stubEmbeddable{}
	source := NewStaticSource(fixtureSnapshot())

	options := Options{
		Source:         source,
		Embeddable:     editor,
		ChartAvailable: true,
		ShowToggle:     true,
		AllowSave:      true,
		AllowEdit:      true,
	}

	if !chartUsable(options) {
		t.Error("chartUsable should hold with source and embeddable")
	}
	if !toggleVisible(options) {
		t.Error("toggleVisible should follow ShowToggle")
	}
	if canSave(options, false) {
		t.Error("canSave needs a store")
	}
	if !canEdit(options, false) {
		t.Error("canEdit should hold for an editor-capable embeddable")
	}
	if canEdit(options, true) {
		t.Error("hidden chart removes edit")
	}

	options.Embeddable = plain
	if canEdit(options, false) {
		t.Error("canEdit requires the Editor capability")
	}

	options.Embeddable = nil
	if chartUsable(options) {
		t.Error("chartUsable requires an embeddable")
	}
	if toggleVisible(options) {
		t.Error("toggle hides when the chart is unusable")
	}
}
