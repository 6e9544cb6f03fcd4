// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the chart panel.
type KeyMap struct {
	// Navigation inside overlays and the edit flyout.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Panel actions.
	ToggleChart key.Binding // Show or hide the chart body.
	Interval    key.Binding // Open the interval dropdown.
	Breakdown   key.Binding // Open the breakdown dropdown.
	Suggestion  key.Binding // Open the suggestion dropdown.
	Save        key.Binding // Open the save dialog.
	Edit        key.Binding // Open the edit flyout.
	Refresh     key.Binding // Re-issue the current query.

	// Overlay control.
	Dismiss key.Binding // Close the active overlay.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	ToggleChart: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle chart"),
	),
	Interval: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "interval"),
	),
	Breakdown: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "breakdown"),
	),
	Suggestion: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "suggestions"),
	),
	Save: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "save"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
