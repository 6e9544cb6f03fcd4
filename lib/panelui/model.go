// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package panelui implements the interactive chart panel: a bubbletea
// model composing the header, a delegated chart body, selector
// dropdowns, the save dialog, and the edit flyout. The panel is
// single-threaded and event-driven; handlers run to completion and
// never block, with query completions and theme changes arriving as
// messages from subscription channels.
package panelui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/saved"
	"github.com/facet-analytics/facet/lib/tui"
)

// FocusRegion identifies which surface has keyboard focus.
type FocusRegion int

const (
	// FocusPanel is the default region: panel-level key bindings.
	FocusPanel FocusRegion = iota

	// FocusDropdown routes keys to the active selector overlay.
	FocusDropdown

	// FocusSaveDialog routes keys to the save form modal.
	FocusSaveDialog

	// FocusEditFlyout routes keys to the embeddable's editor.
	FocusEditFlyout
)

// intervalChoices are the bucket intervals offered by the interval
// dropdown.
var intervalChoices = []string{
	"1m", "5m", "15m", "30m", "1h", "3h", "6h", "12h", "1d", "1w",
}

// statusFadeDelay is how long transient status line notices stay up.
const statusFadeDelay = 4 * time.Second

// sourceEventMsg delivers a source event through the message loop.
type sourceEventMsg struct {
	event Event
}

// themeModeMsg delivers a theme stream notification.
type themeModeMsg struct {
	mode tui.Mode
}

// statusFadeMsg clears a transient status notice. The generation
// guards against a stale fade wiping a newer notice.
type statusFadeMsg struct {
	generation int
}

// Model is the chart panel. Construct with New, run under a
// tea.Program or drive Update directly in tests.
type Model struct {
	options Options
	keys    KeyMap
	theme   tui.Theme

	clock  clock.Clock
	logger *slog.Logger

	sourceChannel <-chan Event
	themeChannel  <-chan tui.Mode

	width  int
	height int
	ready  bool

	// Current query state. Seeded from Options, changed by the
	// selectors and applied suggestions.
	interval  string
	breakdown string
	chartKind string

	hidden     bool
	snapshot   *Snapshot
	lastTotal  int64
	totalStale bool

	embeddable Embeddable
	spinner    spinner.Model

	focusRegion  FocusRegion
	dropdown     *tui.DropdownOverlay
	saveDialog   *tui.FormModal
	editViewport viewport.Model

	status           string
	statusSeverity   string // "success", "warning", "error"
	statusGeneration int
}

// New builds the panel model from the host's options. The initial
// theme is the stream's current one when following, light otherwise.
func New(options Options) Model {
	model := Model{
		options:    options,
		keys:       DefaultKeyMap,
		theme:      tui.LightTheme,
		clock:      options.Clock,
		logger:     options.Logger,
		interval:   options.Interval,
		breakdown:  options.BreakdownField,
		chartKind:  options.ChartKind,
		hidden:     options.HideChart,
		embeddable: options.Embeddable,
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	if model.clock == nil {
		model.clock = clock.Real()
	}
	if model.logger == nil {
		model.logger = slog.Default()
	}
	if model.chartKind == "" {
		model.chartKind = "bar"
	}
	if options.FollowTheme && options.Theme != nil {
		model.theme = options.Theme.Theme()
		model.themeChannel = options.Theme.Subscribe()
	}
	if chartUsable(options) {
		model.sourceChannel = options.Source.Subscribe()
		model.snapshot = options.Source.Snapshot()
	}
	model.count("panel", "opened", 1)
	return model
}

// count records a usage counter when telemetry is wired.
func (model *Model) count(group, name string, delta int64) {
	if model.options.Telemetry != nil {
		model.options.Telemetry.Add(group, name, delta)
	}
}

// Init implements tea.Model: start the subscription listeners and the
// initial query.
func (model Model) Init() tea.Cmd {
	var commands []tea.Cmd
	if model.sourceChannel != nil {
		commands = append(commands, listenForSourceEvent(model.sourceChannel))
	}
	if model.themeChannel != nil {
		commands = append(commands, listenForThemeMode(model.themeChannel))
	}
	if chartUsable(model.options) {
		commands = append(commands, model.queryCmd(), model.spinner.Tick)
	}
	return tea.Batch(commands...)
}

// listenForSourceEvent blocks until a source event arrives, then
// delivers it as a sourceEventMsg. Re-armed after each delivery.
func listenForSourceEvent(channel <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return sourceEventMsg{event: event}
	}
}

// listenForThemeMode blocks until a theme notification arrives.
func listenForThemeMode(channel <-chan tui.Mode) tea.Cmd {
	return func() tea.Msg {
		mode, ok := <-channel
		if !ok {
			return nil
		}
		return themeModeMsg{mode: mode}
	}
}

// queryCmd issues the current query parameters to the source. The
// completion arrives later as a source event.
func (model *Model) queryCmd() tea.Cmd {
	source := model.options.Source
	params := model.currentParams()
	model.count("query", "issued", 1)
	model.totalStale = true
	return func() tea.Msg {
		if err := source.Query(params); err != nil {
			return sourceEventMsg{event: Event{Kind: EventError, Err: err}}
		}
		return nil
	}
}

func (model *Model) currentParams() Params {
	return Params{
		Index:     model.options.Index,
		TimeField: model.options.TimeField,
		From:      model.options.TimeFrom,
		To:        model.options.TimeTo,
		Interval:  model.interval,
		Breakdown: model.breakdown,
	}
}

// loadingState reports the source's loading state, or idle when the
// source does not expose one.
func (model *Model) loadingState() string {
	stater, ok := model.options.Source.(LoadingStater)
	if model.options.Source == nil || !ok {
		return LoadingIdle
	}
	return stater.LoadingState()
}

func (model *Model) querying() bool {
	return chartUsable(model.options) && model.loadingState() == LoadingQuerying
}

// Update implements tea.Model. Keyboard routing is by focus region
// first, then panel-level bindings.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch model.focusRegion {
		case FocusDropdown:
			return model.handleDropdownKeys(message)
		case FocusSaveDialog:
			return model.handleSaveDialogKeys(message)
		case FocusEditFlyout:
			return model.handleEditFlyoutKeys(message)
		}
		return model.handlePanelKeys(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.count("panel", "resized", 1)
		model.editViewport.Width = model.flyoutWidth() - 3
		model.editViewport.Height = model.bodyHeight()
		return model, model.applyInputCmd()

	case sourceEventMsg:
		return model.handleSourceEvent(message.event)

	case themeModeMsg:
		model.theme = tui.ThemeFor(message.mode)
		// Re-render the chart with the new palette.
		return model, tea.Batch(
			model.applyInputCmd(),
			listenForThemeMode(model.themeChannel),
		)

	case OutputMsg:
		if message.Kind == OutputError {
			model.count("chart", "render_errors", 1)
			model.setStatus("render failed: "+message.Err.Error(), "error")
			return model, nil
		}
		model.count("chart", "rendered", 1)
		return model, nil

	case spinner.TickMsg:
		if !model.querying() {
			return model, nil
		}
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command

	case statusFadeMsg:
		if message.generation == model.statusGeneration {
			model.status = ""
		}
		return model, nil
	}

	// Everything else belongs to the embeddable (internal animation
	// ticks and the like).
	if model.embeddable != nil {
		var command tea.Cmd
		model.embeddable, command = model.embeddable.Update(message)
		return model, command
	}
	return model, nil
}

// handlePanelKeys processes keys in the default focus region.
func (model Model) handlePanelKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model.teardown()

	case key.Matches(message, model.keys.ToggleChart):
		if !toggleVisible(model.options) {
			return model, nil
		}
		return model.toggleChart()

	case key.Matches(message, model.keys.Interval):
		if !selectorVisible(model.options, model.options.ShowIntervalSelector) || model.querying() {
			return model, nil
		}
		model.openIntervalDropdown()

	case key.Matches(message, model.keys.Breakdown):
		if !selectorVisible(model.options, model.options.ShowBreakdownSelector) || model.querying() {
			return model, nil
		}
		model.openBreakdownDropdown()

	case key.Matches(message, model.keys.Suggestion):
		if !selectorVisible(model.options, model.options.ShowSuggestionSelector) || model.querying() {
			return model, nil
		}
		model.openSuggestionDropdown()

	case key.Matches(message, model.keys.Save):
		if !canSave(model.options, model.hidden) {
			return model, nil
		}
		model.openSaveDialog()

	case key.Matches(message, model.keys.Edit):
		if !canEdit(model.options, model.hidden) {
			return model, nil
		}
		return model.openEditFlyout()

	case key.Matches(message, model.keys.Refresh):
		if !chartUsable(model.options) {
			return model, nil
		}
		return model, tea.Batch(model.queryCmd(), model.spinner.Tick)
	}
	return model, nil
}

// teardown ends the subscriptions and quits.
func (model Model) teardown() (tea.Model, tea.Cmd) {
	if model.options.Source != nil {
		model.options.Source.Close()
	}
	if model.themeChannel != nil && model.options.Theme != nil {
		model.options.Theme.Unsubscribe(model.themeChannel)
		model.themeChannel = nil
	}
	if model.options.OnQuit != nil {
		model.options.OnQuit()
	}
	return model, tea.Quit
}

// toggleChart hides or unhides the chart body. Hiding collapses the
// panel to its header and removes the action row.
func (model Model) toggleChart() (tea.Model, tea.Cmd) {
	model.hidden = !model.hidden
	if model.hidden {
		model.count("panel", "chart_hidden", 1)
	} else {
		model.count("panel", "chart_shown", 1)
	}
	if model.options.OnToggleChart != nil {
		model.options.OnToggleChart(model.hidden)
	}
	if model.hidden {
		return model, nil
	}
	// Re-send the input so the embeddable renders fresh on reveal.
	return model, model.applyInputCmd()
}

func (model *Model) openIntervalDropdown() {
	options := make([]tui.DropdownOption, len(intervalChoices))
	for index, choice := range intervalChoices {
		options[index] = tui.DropdownOption{Label: choice, Value: choice}
	}
	model.dropdown = tui.NewDropdownOverlay("interval", options, model.interval)
	model.dropdown.AnchorX = model.selectorAnchorX()
	model.dropdown.AnchorY = 1
	model.focusRegion = FocusDropdown
}

func (model *Model) openBreakdownDropdown() {
	options := []tui.DropdownOption{{Label: "(none)", Value: ""}}
	if model.snapshot != nil {
		for _, field := range model.snapshot.Fields {
			if !field.Aggregatable || field.Type != "keyword" {
				continue
			}
			options = append(options, tui.DropdownOption{Label: field.Name, Value: field.Name})
		}
	}
	model.dropdown = tui.NewDropdownOverlay("breakdown", options, model.breakdown)
	model.dropdown.AnchorX = model.selectorAnchorX()
	model.dropdown.AnchorY = 1
	model.focusRegion = FocusDropdown
}

func (model *Model) openSuggestionDropdown() {
	if model.snapshot == nil || len(model.snapshot.Suggestions) == 0 {
		model.setStatus("no suggestions for this index yet", "warning")
		return
	}
	options := make([]tui.DropdownOption, len(model.snapshot.Suggestions))
	for index, suggestion := range model.snapshot.Suggestions {
		options[index] = tui.DropdownOption{
			Label: suggestion.Label,
			Value: fmt.Sprintf("%d", index),
		}
	}
	model.dropdown = tui.NewDropdownOverlay("suggestion", options, "")
	model.dropdown.AnchorX = model.selectorAnchorX()
	model.dropdown.AnchorY = 1
	model.focusRegion = FocusDropdown
}

// selectorAnchorX positions dropdowns under the header's selector
// cluster, clamped so the overlay stays on screen.
func (model *Model) selectorAnchorX() int {
	anchor := len(model.options.Title) + 4
	if model.dropdown != nil && anchor+model.dropdown.Width() > model.width {
		anchor = model.width - model.dropdown.Width()
	}
	if anchor < 0 {
		anchor = 0
	}
	return anchor
}

// handleDropdownKeys routes keys to the active selector overlay:
// typing filters, enter applies, escape dismisses.
func (model Model) handleDropdownKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.dropdown == nil {
		model.focusRegion = FocusPanel
		return model, nil
	}

	switch {
	case message.Type == tea.KeyCtrlC:
		return model.teardown()

	case key.Matches(message, model.keys.Dismiss):
		model.dismissDropdown()

	case key.Matches(message, model.keys.Up):
		// 'k' filters when a filter is active; arrows always navigate.
		if message.Type == tea.KeyRunes && model.dropdown.Filter() != "" {
			model.dropdown.Type(message.Runes[0])
		} else {
			model.dropdown.MoveUp()
		}

	case key.Matches(message, model.keys.Down):
		if message.Type == tea.KeyRunes && model.dropdown.Filter() != "" {
			model.dropdown.Type(message.Runes[0])
		} else {
			model.dropdown.MoveDown()
		}

	case message.Type == tea.KeyEnter:
		selected, ok := model.dropdown.Selected()
		field := model.dropdown.Field
		model.dismissDropdown()
		if !ok {
			return model, nil
		}
		return model.applySelection(field, selected.Value)

	case message.Type == tea.KeyBackspace:
		if !model.dropdown.Backspace() {
			model.dismissDropdown()
		}

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		for _, character := range message.Runes {
			model.dropdown.Type(character)
		}
	}
	return model, nil
}

func (model *Model) dismissDropdown() {
	model.dropdown = nil
	model.focusRegion = FocusPanel
}

// applySelection commits a dropdown choice: state change, callback,
// counter, re-query.
func (model Model) applySelection(field, value string) (tea.Model, tea.Cmd) {
	switch field {
	case "interval":
		if value == model.interval {
			return model, nil
		}
		model.interval = value
		model.count("chart", "interval_changed", 1)
		if model.options.OnIntervalChange != nil {
			model.options.OnIntervalChange(value)
		}

	case "breakdown":
		if value == model.breakdown {
			return model, nil
		}
		model.breakdown = value
		model.count("chart", "breakdown_changed", 1)
		if model.options.OnBreakdownChange != nil {
			model.options.OnBreakdownChange(value)
		}

	case "suggestion":
		var index int
		if _, err := fmt.Sscanf(value, "%d", &index); err != nil {
			return model, nil
		}
		if model.snapshot == nil || index >= len(model.snapshot.Suggestions) {
			return model, nil
		}
		suggestion := model.snapshot.Suggestions[index]
		model.chartKind = suggestion.Kind
		model.breakdown = suggestion.Breakdown
		model.count("chart", "suggestion_applied", 1)
		if model.options.OnSuggestionApply != nil {
			model.options.OnSuggestionApply(suggestion)
		}
	}
	return model, tea.Batch(model.queryCmd(), model.spinner.Tick)
}

// openSaveDialog opens the save form pre-filled from the options.
func (model *Model) openSaveDialog() {
	fields := []tui.FormField{
		{Label: "Title"},
		{Label: "Description", Multiline: true},
	}
	fields[0].SetValue(model.options.Title)
	fields[1].SetValue(model.options.Description)
	model.saveDialog = tui.NewFormModal("Save chart", fields)
	model.focusRegion = FocusSaveDialog
	model.count("save", "dialog_opened", 1)
}

// handleSaveDialogKeys routes keys to the save form. Ctrl+D submits,
// escape cancels, tab cycles fields, everything else edits.
func (model Model) handleSaveDialogKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.saveDialog == nil {
		model.focusRegion = FocusPanel
		return model, nil
	}

	switch {
	case message.Type == tea.KeyCtrlC:
		return model.teardown()

	case key.Matches(message, model.keys.Dismiss):
		model.saveDialog = nil
		model.focusRegion = FocusPanel

	case message.Type == tea.KeyTab:
		model.saveDialog.CycleFocus(1)

	case message.Type == tea.KeyShiftTab:
		model.saveDialog.CycleFocus(-1)

	case message.Type == tea.KeyCtrlD:
		return model.submitSaveDialog()

	default:
		model.saveDialog.Update(message)
	}
	return model, nil
}

// submitSaveDialog writes the chart through the store. Validation
// failures keep the dialog open with the error shown.
func (model Model) submitSaveDialog() (tea.Model, tea.Cmd) {
	chart := saved.Chart{
		Title:       model.saveDialog.Value(0),
		Description: model.saveDialog.Value(1),
		Index:       model.options.Index,
		TimeField:   model.options.TimeField,
		Interval:    model.interval,
		Breakdown:   model.breakdown,
		Kind:        model.chartKind,
		CreatedAt:   model.clock.Now().UTC(),
	}

	id, err := model.options.Saved.Save(&chart)
	if err != nil {
		model.saveDialog.ErrorText = err.Error()
		model.count("save", "save_errors", 1)
		return model, nil
	}

	model.saveDialog = nil
	model.focusRegion = FocusPanel
	model.count("save", "chart_saved", 1)
	if model.options.OnChartSave != nil {
		model.options.OnChartSave(chart)
	}
	return model.withStatus(fmt.Sprintf("saved %q (%s)", chart.Title, id), "success")
}

// openEditFlyout hands focus to the embeddable's editor.
func (model Model) openEditFlyout() (tea.Model, tea.Cmd) {
	editor := model.options.Embeddable.(Editor)
	model.focusRegion = FocusEditFlyout
	model.count("edit", "flyout_opened", 1)
	if model.options.OnEditOpen != nil {
		model.options.OnEditOpen()
	}
	model.editViewport.Width = model.flyoutWidth() - 3
	model.editViewport.Height = model.bodyHeight()
	model.editViewport.GotoTop()
	model.editViewport.SetContent(editor.EditView(model.editViewport.Width, model.editViewport.Height))
	return model, nil
}

// handleEditFlyoutKeys forwards keys to the embeddable's editor. The
// panel owns only the chrome: escape closes, page keys scroll.
func (model Model) handleEditFlyoutKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	editor, ok := model.embeddable.(Editor)
	if !ok {
		model.focusRegion = FocusPanel
		return model, nil
	}

	switch {
	case message.Type == tea.KeyCtrlC:
		return model.teardown()

	case key.Matches(message, model.keys.Dismiss):
		model.focusRegion = FocusPanel
		return model, nil

	case key.Matches(message, model.keys.PageUp):
		model.editViewport.HalfViewUp()
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.editViewport.HalfViewDown()
		return model, nil
	}

	updated, command, input, changed := editor.UpdateEdit(message)
	model.embeddable = updated
	model.editViewport.SetContent(
		model.embeddable.(Editor).EditView(model.editViewport.Width, model.editViewport.Height))
	if !changed {
		return model, command
	}

	// The editor produced a changed input: adopt its kind and
	// breakdown, then re-apply with the panel's layout and theme.
	model.chartKind = input.Kind
	model.breakdown = input.Breakdown
	model.count("edit", "input_applied", 1)
	return model, tea.Batch(command, model.applyInputCmd())
}

// handleSourceEvent folds a source event into the panel state and
// re-arms the listener.
func (model Model) handleSourceEvent(event Event) (tea.Model, tea.Cmd) {
	relisten := listenForSourceEvent(model.sourceChannel)

	switch event.Kind {
	case EventResult:
		model.snapshot = event.Snapshot
		model.lastTotal = event.Snapshot.Total
		model.totalStale = false
		model.count("query", "hits_reported", event.Snapshot.Total)
		if model.options.OnTotalHits != nil {
			model.options.OnTotalHits(event.Snapshot.Total)
		}
		return model, tea.Batch(model.applyInputCmd(), relisten)

	case EventSuggestions:
		if model.snapshot == nil {
			model.snapshot = event.Snapshot
		} else {
			updated := *model.snapshot
			updated.Fields = event.Snapshot.Fields
			updated.Suggestions = event.Snapshot.Suggestions
			model.snapshot = &updated
		}
		return model, relisten

	case EventError:
		model.count("query", "failed", 1)
		model.totalStale = true
		model.logger.Warn("query failed", "error", event.Err)
		next, fade := model.withStatus("query failed: "+event.Err.Error(), "error")
		return next, tea.Batch(fade, relisten)
	}
	return model, relisten
}

// applyInputCmd sends the current state to the embeddable and returns
// the command that will yield its OutputMsg.
func (model *Model) applyInputCmd() tea.Cmd {
	if model.embeddable == nil || model.hidden || !model.ready {
		return nil
	}
	input := Input{
		Total:     model.lastTotal,
		Kind:      model.chartKind,
		Breakdown: model.breakdown,
		Interval:  model.interval,
		TimeFrom:  model.options.TimeFrom,
		TimeTo:    model.options.TimeTo,
		Theme:     model.theme,
		Width:     model.bodyWidth(),
		Height:    model.bodyHeight(),
	}
	if model.snapshot != nil {
		input.Buckets = model.snapshot.Buckets
		input.Total = model.snapshot.Total
	}
	return model.embeddable.SetInput(input)
}

// setStatus replaces the status line notice without scheduling a
// fade. Used for sticky warnings.
func (model *Model) setStatus(text, severity string) {
	model.statusGeneration++
	model.status = text
	model.statusSeverity = severity
}

// withStatus sets a transient notice and returns the fade command.
func (model Model) withStatus(text, severity string) (Model, tea.Cmd) {
	model.setStatus(text, severity)
	generation := model.statusGeneration
	return model, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{generation: generation}
	})
}
