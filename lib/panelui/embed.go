// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facet-analytics/facet/lib/tui"
)

// Input is everything an embeddable needs to render the chart body.
// The panel assembles one from its options and the latest snapshot
// and hands it over through SetInput.
type Input struct {
	Buckets   []Bucket
	Total     int64
	Kind      string
	Breakdown string
	Interval  string
	TimeFrom  string
	TimeTo    string
	Theme     tui.Theme

	// Width and Height are the body area available to View. The
	// panel re-sends the input on resize with updated dimensions.
	Width  int
	Height int
}

// OutputKind discriminates embeddable outputs.
type OutputKind int

const (
	// OutputRendered reports a successful render pass.
	OutputRendered OutputKind = iota

	// OutputError reports that the input could not be rendered.
	OutputError
)

// Output is what an embeddable reports after processing an input.
type Output struct {
	Kind    OutputKind
	Err     error
	Points  int
	Elapsed time.Duration
}

// OutputMsg delivers an Output through the bubbletea message loop.
type OutputMsg Output

// Embeddable is the message-passing contract between the panel and
// the chart body widget. SetInput returns the command that will yield
// the resulting OutputMsg; the panel never blocks on rendering.
type Embeddable interface {
	SetInput(input Input) tea.Cmd
	Update(message tea.Msg) (Embeddable, tea.Cmd)
	View(width, height int) string
}

// Editor is an optional Embeddable capability: embeddables that can
// edit their own configuration expose the edit flyout's content
// through it. The panel draws the flyout chrome and forwards keys;
// the final bool from UpdateEdit reports whether the embeddable
// produced a changed Input the panel should re-apply.
type Editor interface {
	Embeddable
	EditView(width, height int) string
	UpdateEdit(message tea.KeyMsg) (Embeddable, tea.Cmd, Input, bool)
}
