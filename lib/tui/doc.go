// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides facet's shared terminal UI building blocks:
// the light/dark theme pair and the theme notification stream, the
// dropdown overlay with fuzzy type-to-filter, the form modal used by
// the save dialog, ANSI-aware overlay compositing, and the
// proportional scrollbar.
//
// The widgets render to plain strings; the panel model in lib/panelui
// owns layout, focus, and input routing.
package tui
