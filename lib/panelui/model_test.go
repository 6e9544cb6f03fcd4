// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/saved"
	"github.com/facet-analytics/facet/lib/telemetry"
	"github.com/facet-analytics/facet/lib/tui"
)

// stubEmbeddable renders a fixed body and records the inputs it
// receives. The pointer is shared with the model, so tests inspect it
// after driving Update.
type stubEmbeddable struct {
	lastInput  Input
	inputCount int
}

func (stub *stubEmbeddable) SetInput(input Input) tea.Cmd {
	stub.lastInput = input
	stub.inputCount++
	return func() tea.Msg {
		return OutputMsg{Kind: OutputRendered, Points: len(input.Buckets)}
	}
}

func (stub *stubEmbeddable) Update(message tea.Msg) (Embeddable, tea.Cmd) {
	return stub, nil
}

func (stub *stubEmbeddable) View(width, height int) string {
	return "chart body"
}

// stubEditor adds the Editor capability: any rune key produces a
// changed input switching the kind to line.
type stubEditor struct {
	stubEmbeddable
}

func (stub *stubEditor) EditView(width, height int) string {
	return "kind: bar\nkind: line"
}

func (stub *stubEditor) UpdateEdit(message tea.KeyMsg) (Embeddable, tea.Cmd, Input, bool) {
	if message.Type == tea.KeyRunes {
		input := stub.lastInput
		input.Kind = "line"
		return stub, nil, input, true
	}
	return stub, nil, Input{}, false
}

func fixtureSnapshot() *Snapshot {
	return &Snapshot{
		Total: 1234,
		Buckets: []Bucket{
			{Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Count: 700},
			{Start: time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), Count: 534},
		},
		Fields: []Field{
			{Name: "service.keyword", Type: "keyword", Aggregatable: true},
			{Name: "@timestamp", Type: "date", Aggregatable: true},
		},
		Suggestions: []Suggestion{
			{Label: "stack by service.keyword", Kind: "bar", Breakdown: "service.keyword"},
		},
	}
}

func baseOptions(source Source, embeddable Embeddable) Options {
	return Options{
		Source:         source,
		Embeddable:     embeddable,
		Telemetry:      telemetry.NewRecorder(telemetry.Usage),
		Clock:          clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger:         slog.New(slog.DiscardHandler),
		Title:          "Log volume",
		Index:          "logs-*",
		TimeField:      "@timestamp",
		TimeFrom:       "now-24h",
		TimeTo:         "now",
		Interval:       "1h",
		ChartKind:      "bar",
		ChartAvailable: true,
		ShowToggle:     true,
		ShowHitCount:   true,
	}
}

// resize readies the model for rendering.
func resize(t *testing.T, model Model) Model {
	t.Helper()
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

// runCmd executes a command tree, flattening batches, and returns the
// produced messages.
func runCmd(command tea.Cmd) []tea.Msg {
	if command == nil {
		return nil
	}
	message := command()
	if batch, ok := message.(tea.BatchMsg); ok {
		var messages []tea.Msg
		for _, sub := range batch {
			messages = append(messages, runCmd(sub)...)
		}
		return messages
	}
	if message == nil {
		return nil
	}
	return []tea.Msg{message}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func counterValue(recorder *telemetry.Recorder, group, name string) int64 {
	for _, count := range recorder.Snapshot() {
		if count.Group == group && count.Name == name {
			return count.Value
		}
	}
	return 0
}

func TestViewBeforeFirstResize(t *testing.T) {
	model := New(baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{}))
	if view := model.View(); view != "Loading..." {
		t.Errorf("pre-resize view = %q", view)
	}
}

func TestToggleHidesBodyAndCounts(t *testing.T) {
	var toggled []bool
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	options.OnToggleChart = func(hidden bool) { toggled = append(toggled, hidden) }
	model := resize(t, New(options))

	if !strings.Contains(model.View(), "chart body") {
		t.Fatal("chart body should render initially")
	}

	updated, _ := model.Update(keyRune('t'))
	model = updated.(Model)
	if strings.Contains(model.View(), "chart body") {
		t.Error("hidden chart should collapse the body")
	}
	if got := counterValue(options.Telemetry, "panel", "chart_hidden"); got != 1 {
		t.Errorf("panel.chart_hidden = %d", got)
	}

	updated, _ = model.Update(keyRune('t'))
	model = updated.(Model)
	if !strings.Contains(model.View(), "chart body") {
		t.Error("chart body should return after unhide")
	}
	if got := counterValue(options.Telemetry, "panel", "chart_shown"); got != 1 {
		t.Errorf("panel.chart_shown = %d", got)
	}
	if len(toggled) != 2 || !toggled[0] || toggled[1] {
		t.Errorf("OnToggleChart calls = %v", toggled)
	}
}

func TestIntervalSelectionReissuesQuery(t *testing.T) {
	source := NewStaticSource(fixtureSnapshot())
	var applied string
	options := baseOptions(source, &stubEmbeddable{})
	options.ShowIntervalSelector = true
	options.OnIntervalChange = func(interval string) { applied = interval }
	model := resize(t, New(options))

	updated, _ := model.Update(keyRune('i'))
	model = updated.(Model)
	if model.focusRegion != FocusDropdown || model.dropdown == nil {
		t.Fatal("interval key should open the dropdown")
	}

	// Filter down to 1d and apply.
	updated, _ = model.Update(keyRune('1'))
	model = updated.(Model)
	updated, _ = model.Update(keyRune('d'))
	model = updated.(Model)
	updated, command := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)

	if applied != "1d" {
		t.Errorf("OnIntervalChange got %q, want 1d", applied)
	}
	if model.focusRegion != FocusPanel {
		t.Error("dropdown should be dismissed after apply")
	}
	if got := counterValue(options.Telemetry, "chart", "interval_changed"); got != 1 {
		t.Errorf("chart.interval_changed = %d", got)
	}

	runCmd(command)
	if params := source.LastParams(); params.Interval != "1d" {
		t.Errorf("re-query interval = %q, want 1d", params.Interval)
	}
}

func TestSuggestionApplySwitchesKindAndBreakdown(t *testing.T) {
	source := NewStaticSource(fixtureSnapshot())
	var applied Suggestion
	options := baseOptions(source, &stubEmbeddable{})
	options.ShowSuggestionSelector = true
	options.OnSuggestionApply = func(suggestion Suggestion) { applied = suggestion }
	model := resize(t, New(options))
	model.snapshot = fixtureSnapshot()

	updated, _ := model.Update(keyRune('s'))
	model = updated.(Model)
	if model.dropdown == nil {
		t.Fatal("suggestion key should open the dropdown")
	}
	updated, command := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)

	if applied.Breakdown != "service.keyword" {
		t.Errorf("OnSuggestionApply got %+v", applied)
	}
	if model.breakdown != "service.keyword" || model.chartKind != "bar" {
		t.Errorf("model state = kind %q breakdown %q", model.chartKind, model.breakdown)
	}
	if got := counterValue(options.Telemetry, "chart", "suggestion_applied"); got != 1 {
		t.Errorf("chart.suggestion_applied = %d", got)
	}
	runCmd(command)
	if params := source.LastParams(); params.Breakdown != "service.keyword" {
		t.Errorf("re-query breakdown = %q", params.Breakdown)
	}
}

func TestResultEventUpdatesHitCount(t *testing.T) {
	var reported int64
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	options.OnTotalHits = func(total int64) { reported = total }
	model := resize(t, New(options))

	updated, _ := model.Update(sourceEventMsg{event: Event{
		Kind: EventResult, Snapshot: fixtureSnapshot(),
	}})
	model = updated.(Model)

	if reported != 1234 {
		t.Errorf("OnTotalHits got %d", reported)
	}
	if !strings.Contains(model.View(), "1234 hits") {
		t.Error("view should show the fresh hit count")
	}
	if strings.Contains(model.View(), "~1234") {
		t.Error("fresh total must not be marked stale")
	}
	if got := counterValue(options.Telemetry, "query", "hits_reported"); got != 1234 {
		t.Errorf("query.hits_reported = %d", got)
	}
}

func TestErrorEventShowsStatusAndCounts(t *testing.T) {
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	model := resize(t, New(options))

	updated, _ := model.Update(sourceEventMsg{event: Event{
		Kind: EventError, Err: errors.New("search_phase_execution_exception"),
	}})
	model = updated.(Model)

	if !strings.Contains(model.View(), "query failed") {
		t.Error("view should surface the query failure")
	}
	if got := counterValue(options.Telemetry, "query", "failed"); got != 1 {
		t.Errorf("query.failed = %d", got)
	}
}

func TestSaveDialogFlow(t *testing.T) {
	store, err := saved.NewStore(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	var savedChart saved.Chart
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	options.Saved = store
	options.AllowSave = true
	options.OnChartSave = func(chart saved.Chart) { savedChart = chart }
	model := resize(t, New(options))

	updated, _ := model.Update(keyRune('w'))
	model = updated.(Model)
	if model.focusRegion != FocusSaveDialog || model.saveDialog == nil {
		t.Fatal("save key should open the dialog")
	}
	if got := counterValue(options.Telemetry, "save", "dialog_opened"); got != 1 {
		t.Errorf("save.dialog_opened = %d", got)
	}
	if model.saveDialog.Value(0) != "Log volume" {
		t.Errorf("title should be pre-filled, got %q", model.saveDialog.Value(0))
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	model = updated.(Model)

	if model.saveDialog != nil {
		t.Fatal("dialog should close after a successful save")
	}
	if savedChart.Title != "Log volume" || savedChart.Kind != "bar" {
		t.Errorf("OnChartSave got %+v", savedChart)
	}
	if got := counterValue(options.Telemetry, "save", "chart_saved"); got != 1 {
		t.Errorf("save.chart_saved = %d", got)
	}
	charts, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(charts) != 1 || charts[0].Index != "logs-*" {
		t.Errorf("stored charts = %+v", charts)
	}
	if !strings.Contains(model.View(), "saved") {
		t.Error("status line should confirm the save")
	}
}

func TestSaveValidationKeepsDialogOpen(t *testing.T) {
	store, err := saved.NewStore(t.TempDir(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	options.Saved = store
	options.AllowSave = true
	options.Title = "" // empty title fails validation
	model := resize(t, New(options))

	updated, _ := model.Update(keyRune('w'))
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	model = updated.(Model)

	if model.saveDialog == nil {
		t.Fatal("failed validation must keep the dialog open")
	}
	if model.saveDialog.ErrorText == "" {
		t.Error("dialog should show the validation error")
	}
	if got := counterValue(options.Telemetry, "save", "save_errors"); got != 1 {
		t.Errorf("save.save_errors = %d", got)
	}
}

func TestEditFlyoutAppliesChangedInput(t *testing.T) {
	editor := &stubEditor{}
	var editOpened bool
	options := baseOptions(NewStaticSource(fixtureSnapshot()), editor)
	options.AllowEdit = true
	options.OnEditOpen = func() { editOpened = true }
	model := resize(t, New(options))

	updated, _ := model.Update(keyRune('e'))
	model = updated.(Model)
	if model.focusRegion != FocusEditFlyout {
		t.Fatal("edit key should focus the flyout")
	}
	if !editOpened {
		t.Error("OnEditOpen should fire")
	}
	if got := counterValue(options.Telemetry, "edit", "flyout_opened"); got != 1 {
		t.Errorf("edit.flyout_opened = %d", got)
	}

	updated, command := model.Update(keyRune('x'))
	model = updated.(Model)
	runCmd(command)

	if model.chartKind != "line" {
		t.Errorf("applied input should switch kind, got %q", model.chartKind)
	}
	if got := counterValue(options.Telemetry, "edit", "input_applied"); got != 1 {
		t.Errorf("edit.input_applied = %d", got)
	}

	// Escape returns focus to the panel.
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = updated.(Model)
	if model.focusRegion != FocusPanel {
		t.Error("escape should close the flyout")
	}
}

func TestThemeNotificationSwapsPalette(t *testing.T) {
	themes := tui.NewThemeSource()
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	options.FollowTheme = true
	options.Theme = themes
	model := resize(t, New(options))

	if model.theme.NormalText != tui.LightTheme.NormalText {
		t.Fatal("panel should start with the light theme")
	}

	updated, _ := model.Update(themeModeMsg{mode: tui.ModeDark})
	model = updated.(Model)
	if model.theme.NormalText != tui.DarkTheme.NormalText {
		t.Error("dark notification should swap the palette")
	}
}

func TestQuitTearsDown(t *testing.T) {
	source := NewStaticSource(fixtureSnapshot())
	var quit bool
	options := baseOptions(source, &stubEmbeddable{})
	options.OnQuit = func() { quit = true }
	model := resize(t, New(options))
	subscription := model.sourceChannel

	updated, command := model.Update(keyRune('q'))
	_ = updated

	if !quit {
		t.Error("OnQuit should fire on teardown")
	}
	messages := runCmd(command)
	if len(messages) != 1 {
		t.Fatalf("quit should produce one message, got %d", len(messages))
	}
	if _, ok := messages[0].(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", messages[0])
	}

	// The source subscription must be closed.
	select {
	case _, open := <-subscription:
		if open {
			t.Error("subscription should deliver only the close")
		}
	default:
		t.Error("subscription channel should be closed")
	}
}

func TestPanelOpenedCounter(t *testing.T) {
	options := baseOptions(NewStaticSource(fixtureSnapshot()), &stubEmbeddable{})
	New(options)
	if got := counterValue(options.Telemetry, "panel", "opened"); got != 1 {
		t.Errorf("panel.opened = %d", got)
	}
}
