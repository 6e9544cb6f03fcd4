// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for facet's terminal UI. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
//
// The fields cover universal chrome (text, selection, borders) and the
// chart-specific surfaces: the series palette that breakdown segments
// cycle through, and the axis color.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row or option.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// OverlayBackground fills dropdowns and modals so they read as a
	// layer above the panel.
	OverlayBackground lipgloss.Color

	// Accent marks the focused widget and interactive affordances.
	Accent lipgloss.Color

	// Status line severities.
	StatusSuccess lipgloss.Color
	StatusWarning lipgloss.Color
	StatusError   lipgloss.Color

	// Chart surfaces.
	AxisColor lipgloss.Color

	// SeriesColors is the breakdown palette. Segments cycle through
	// it in order; SeriesColor wraps the index.
	SeriesColors [6]lipgloss.Color

	// MatchForeground highlights fuzzy-matched characters in
	// dropdown filtering.
	MatchForeground lipgloss.Color
}

// SeriesColor returns the palette color for a series index, cycling
// when the breakdown has more series than the palette has colors.
func (theme Theme) SeriesColor(index int) lipgloss.Color {
	if index < 0 {
		return theme.NormalText
	}
	return theme.SeriesColors[index%len(theme.SeriesColors)]
}

// LightTheme is the default palette: dark ink on a light terminal
// background. Facet starts light and only switches when the theme
// stream reports a dark terminal.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("243"),

	SelectedBackground: lipgloss.Color("254"),
	SelectedForeground: lipgloss.Color("16"),

	HeaderForeground: lipgloss.Color("16"),
	BorderColor:      lipgloss.Color("250"),
	HelpText:         lipgloss.Color("247"),

	OverlayBackground: lipgloss.Color("253"),

	Accent: lipgloss.Color("26"), // medium blue

	StatusSuccess: lipgloss.Color("28"),  // dark green
	StatusWarning: lipgloss.Color("130"), // dark orange
	StatusError:   lipgloss.Color("124"), // dark red

	AxisColor: lipgloss.Color("245"),

	SeriesColors: [6]lipgloss.Color{
		lipgloss.Color("26"),  // blue
		lipgloss.Color("127"), // magenta
		lipgloss.Color("28"),  // green
		lipgloss.Color("130"), // orange
		lipgloss.Color("30"),  // teal
		lipgloss.Color("91"),  // purple
	},

	MatchForeground: lipgloss.Color("26"),
}

// DarkTheme is the palette for dark terminal backgrounds.
var DarkTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	OverlayBackground: lipgloss.Color("235"),

	Accent: lipgloss.Color("75"), // light blue

	StatusSuccess: lipgloss.Color("114"), // green
	StatusWarning: lipgloss.Color("220"), // amber
	StatusError:   lipgloss.Color("196"), // red

	AxisColor: lipgloss.Color("243"),

	SeriesColors: [6]lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("213"), // pink
		lipgloss.Color("114"), // green
		lipgloss.Color("220"), // amber
		lipgloss.Color("80"),  // cyan
		lipgloss.Color("141"), // purple
	},

	MatchForeground: lipgloss.Color("75"),
}
