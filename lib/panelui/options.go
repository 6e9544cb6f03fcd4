// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"log/slog"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/saved"
	"github.com/facet-analytics/facet/lib/telemetry"
	"github.com/facet-analytics/facet/lib/tui"
)

// Options is the prop bag the host supplies to New. Services may be
// nil; the derived flags below degrade the panel gracefully (no
// source means no chart, no store means no save, and so on).
type Options struct {
	// Services.
	Source     Source
	Embeddable Embeddable
	Theme      *tui.ThemeSource
	Telemetry  *telemetry.Recorder
	Saved      *saved.Store
	Clock      clock.Clock
	Logger     *slog.Logger

	// Content.
	Title          string
	Description    string // markdown, rendered in the footer
	Index          string
	TimeField      string
	TimeFrom       string
	TimeTo         string
	Interval       string
	BreakdownField string
	ChartKind      string

	// Flags.
	ChartAvailable         bool
	HideChart              bool // initial toggle state
	ShowToggle             bool
	ShowIntervalSelector   bool
	ShowBreakdownSelector  bool
	ShowSuggestionSelector bool
	ShowHitCount           bool
	AllowSave              bool
	AllowEdit              bool
	ReadOnly               bool
	FollowTheme            bool

	// Callbacks, invoked synchronously from Update.
	OnToggleChart     func(hidden bool)
	OnIntervalChange  func(interval string)
	OnBreakdownChange func(field string)
	OnSuggestionApply func(suggestion Suggestion)
	OnChartSave       func(chart saved.Chart)
	OnEditOpen        func()
	OnTotalHits       func(total int64)
	OnQuit            func()
}

// The derived flags are pure functions over Options and the hidden
// state, so visibility rules live in one place and are testable
// without a rendered view.

// chartUsable reports whether a chart body can exist at all.
func chartUsable(options Options) bool {
	return options.ChartAvailable && options.Source != nil && options.Embeddable != nil
}

// actionsVisible is the visibility flag for the action button row
// (save, edit, suggestion apply). Hiding the chart or running
// read-only removes every action.
func actionsVisible(options Options, hidden bool) bool {
	return chartUsable(options) && !hidden && !options.ReadOnly
}

// canSave reports whether the save action is offered.
func canSave(options Options, hidden bool) bool {
	return actionsVisible(options, hidden) && options.AllowSave && options.Saved != nil
}

// canEdit reports whether the edit action is offered. The embeddable
// must implement Editor.
func canEdit(options Options, hidden bool) bool {
	if !actionsVisible(options, hidden) || !options.AllowEdit {
		return false
	}
	_, editorCapable := options.Embeddable.(Editor)
	return editorCapable
}

// toggleVisible reports whether the show/hide toggle is offered.
func toggleVisible(options Options) bool {
	return options.ShowToggle && chartUsable(options)
}

// selectorVisible reports whether a selector with the given Show*
// flag renders.
func selectorVisible(options Options, show bool) bool {
	return show && chartUsable(options)
}
