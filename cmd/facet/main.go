// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// The facet command is the terminal analytics viewer: it runs a
// date-histogram aggregation against an Elasticsearch index and
// renders the result as an interactive chart panel.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/facet-analytics/facet/lib/chart"
	"github.com/facet-analytics/facet/lib/cli"
	"github.com/facet-analytics/facet/lib/clock"
	"github.com/facet-analytics/facet/lib/config"
	"github.com/facet-analytics/facet/lib/elastic"
	"github.com/facet-analytics/facet/lib/keystore"
	"github.com/facet-analytics/facet/lib/panelui"
	"github.com/facet-analytics/facet/lib/saved"
	"github.com/facet-analytics/facet/lib/telemetry"
	"github.com/facet-analytics/facet/lib/tui"
	"github.com/facet-analytics/facet/lib/version"
)

func main() {
	if err := run(); err != nil {
		cli.Fprint(os.Stderr, err)
		code := 1
		var exiter interface{ ExitCode() int }
		if errors.As(err, &exiter) {
			code = exiter.ExitCode()
		}
		os.Exit(code)
	}
}

func run() error {
	for _, argument := range os.Args[1:] {
		if argument == "--version" {
			version.Print("facet")
			return nil
		}
	}

	flags := pflag.NewFlagSet("facet", pflag.ContinueOnError)
	configPath := flags.String("config", "", "settings file (default: config/facet.dev.yml, then config/facet.yml)")
	index := flags.String("index", "", "index or index pattern to query (overrides config)")
	from := flags.String("from", "now-24h", "start of the time range (Elasticsearch date math)")
	to := flags.String("to", "now", "end of the time range (Elasticsearch date math)")
	interval := flags.String("interval", "", "bucket interval (overrides config; \"auto\" picks from the range)")
	breakdown := flags.String("breakdown", "", "keyword field to split series on")
	chartKind := flags.String("chart", "", "chart kind, bar or line (overrides config)")
	demo := flags.Bool("demo", false, "run against generated fixture data, no cluster needed")
	noTelemetry := flags.Bool("no-telemetry", false, "disable usage counting for this run")
	logOutput := flags.String("log-output", "", "write JSON logs to this file instead of text on stderr")
	flags.Bool("version", false, "print version information and exit")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: facet [flags]

Renders an Elasticsearch date histogram as an interactive terminal
chart. Keys: t toggle, i interval, b breakdown, s suggestions,
w save, e edit, q quit.

Examples:
  facet --index 'logs-*' --from now-7d --interval 1h
  facet --demo

Flags:
%s`, flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return cli.Validation("%v", err)
	}
	if flags.NArg() > 0 {
		return cli.Validation("unexpected arguments: %v", flags.Args())
	}

	logger, closeLogs, err := buildLogger(*logOutput)
	if err != nil {
		return err
	}
	defer closeLogs()
	slog.SetDefault(logger)

	settings, err := loadSettings(*configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(settings, *index, *interval, *chartKind)
	if err := settings.Validate(); err != nil {
		return cli.Validation("invalid settings: %w", err).
			WithHint("Check config/facet.yml against the documented keys.")
	}

	resolvedInterval := settings.UI.DefaultInterval
	if resolvedInterval == "auto" {
		resolvedInterval = autoInterval(*from)
	}

	recorder, reporter, err := buildTelemetry(settings, *noTelemetry, logger)
	if err != nil {
		return err
	}

	source, sourceTitle, err := buildSource(settings, *demo, logger)
	if err != nil {
		return err
	}

	savedStore, err := saved.NewStore(settings.UI.SavedDirectory, logger)
	if err != nil {
		return cli.Internal("opening saved chart store: %w", err)
	}

	themes := tui.NewThemeSource()
	themes.Set(tui.DetectMode(termenv.NewOutput(os.Stdout)))

	model := panelui.New(panelui.Options{
		Source:     source,
		Embeddable: chart.New(),
		Theme:      themes,
		Telemetry:  recorder,
		Saved:      savedStore,
		Clock:      clock.Real(),
		Logger:     logger,

		Title:          sourceTitle,
		Index:          settings.Elasticsearch.Index,
		TimeField:      settings.Elasticsearch.TimeField,
		TimeFrom:       *from,
		TimeTo:         *to,
		Interval:       resolvedInterval,
		BreakdownField: *breakdown,
		ChartKind:      settings.UI.DefaultChart,

		ChartAvailable:         true,
		HideChart:              settings.UI.HideChart,
		ShowToggle:             true,
		ShowIntervalSelector:   true,
		ShowBreakdownSelector:  true,
		ShowSuggestionSelector: true,
		ShowHitCount:           true,
		AllowSave:              true,
		AllowEdit:              true,
		FollowTheme:            true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if reporter != nil {
		go reporter.Run(ctx)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, runErr := program.Run()

	// Ship whatever was counted during the session before exiting.
	if reporter != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		reporter.Flush(flushCtx)
		flushCancel()
	}

	if runErr != nil {
		return cli.Internal("running viewer: %w", runErr)
	}
	return nil
}

// buildLogger returns the session logger: JSON to the --log-output
// file when given, otherwise text at warn to stderr so log lines do
// not tear the TUI under normal operation.
func buildLogger(logOutput string) (*slog.Logger, func(), error) {
	if logOutput == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(handler), func() {}, nil
	}

	file, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, cli.Validation("opening log output %s: %w", logOutput, err)
	}
	return slog.New(slog.NewJSONHandler(file, nil)), func() { file.Close() }, nil
}

func loadSettings(configPath string) (*config.Settings, error) {
	if configPath != "" {
		settings, err := config.LoadFile(configPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, cli.NotFound("settings file %s does not exist", configPath)
			}
			return nil, cli.Validation("%w", err)
		}
		return settings, nil
	}
	settings, err := config.Load()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return settings, nil
}

// applyFlagOverrides lets command-line flags win over the file.
func applyFlagOverrides(settings *config.Settings, index, interval, chartKind string) {
	if index != "" {
		settings.Elasticsearch.Index = index
	}
	if interval != "" {
		settings.UI.DefaultInterval = interval
	}
	if chartKind != "" {
		settings.UI.DefaultChart = chartKind
	}
}

// autoInterval picks a bucket interval from the --from date math so
// roughly 24 to 300 buckets cover the range. Unrecognized expressions
// fall back to hourly.
func autoInterval(from string) string {
	switch from {
	case "now-15m", "now-30m", "now-1h":
		return "1m"
	case "now-3h", "now-6h":
		return "5m"
	case "now-12h", "now-24h", "now-1d":
		return "15m"
	case "now-2d", "now-3d", "now-7d", "now-1w":
		return "1h"
	case "now-14d", "now-30d", "now-1M":
		return "6h"
	case "now-90d", "now-180d", "now-1y":
		return "1d"
	default:
		return "1h"
	}
}

// buildTelemetry wires the recorder and, when an endpoint is
// configured, the shipping reporter. Both are nil when telemetry is
// off.
func buildTelemetry(settings *config.Settings, disabled bool, logger *slog.Logger) (*telemetry.Recorder, *telemetry.Reporter, error) {
	if disabled || !settings.Telemetry.Enabled {
		return nil, nil, nil
	}

	recorder := telemetry.NewRecorder(telemetry.Usage)
	if settings.Telemetry.Endpoint == "" {
		return recorder, nil, nil
	}

	installID, err := telemetry.LoadOrCreateInstallID(settings.Telemetry.InstallIDPath)
	if err != nil {
		// Shipping needs the ID; counting does not. Degrade rather
		// than refuse to start.
		logger.Warn("install id unavailable, telemetry stays local",
			"path", settings.Telemetry.InstallIDPath, "error", err)
		return recorder, nil, nil
	}

	reporter, err := telemetry.NewReporter(telemetry.ReporterConfig{
		Recorder:  recorder,
		Endpoint:  settings.Telemetry.Endpoint,
		InstallID: installID,
		Clock:     clock.Real(),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, cli.Internal("creating telemetry reporter: %w", err)
	}
	return recorder, reporter, nil
}

// buildSource constructs the panel's data source: fixture data in
// demo mode, otherwise an Elasticsearch client against the first
// reachable configured host.
func buildSource(settings *config.Settings, demo bool, logger *slog.Logger) (panelui.Source, string, error) {
	if demo {
		return panelui.NewStaticSource(demoSnapshot()), "facet (demo)", nil
	}

	password := settings.Elasticsearch.Password
	if password == "" {
		filled, err := keystorePassword(settings.Keystore.Path)
		if err != nil {
			return nil, "", err
		}
		password = filled
	}

	var lastErr error
	for _, host := range settings.Elasticsearch.Hosts {
		client, err := elastic.NewClient(elastic.ClientConfig{
			BaseURL:  host,
			Username: settings.Elasticsearch.Username,
			Password: password,
			Logger:   logger,
		})
		if err != nil {
			return nil, "", cli.Validation("%w", err)
		}

		pingCtx, cancel := context.WithTimeout(context.Background(), settings.RequestTimeout())
		clusterVersion, err := client.Ping(pingCtx)
		cancel()
		if err != nil {
			lastErr = err
			logger.Warn("host unreachable", "host", host, "error", err)
			continue
		}

		logger.Info("connected", "host", host, "version", clusterVersion)
		title := fmt.Sprintf("facet — %s", settings.Elasticsearch.Index)
		return elastic.NewSource(client, logger), title, nil
	}
	return nil, "", cli.Transient("no reachable Elasticsearch host: %w", lastErr).
		WithHint("Check elasticsearch.hosts, or run with --demo.")
}

// keystorePassword reads elasticsearch.password from the keystore
// when the file exists. A missing keystore or a missing key is not an
// error; the connection simply proceeds without a password.
func keystorePassword(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", cli.Internal("checking keystore %s: %w", path, err)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	fmt.Fprintf(os.Stderr, "Keystore passphrase for %s: ", path)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", cli.Internal("reading passphrase: %w", err)
	}

	store, err := keystore.Open(path, string(passphrase))
	if err != nil {
		return "", cli.Validation("opening keystore: %w", err).
			WithHint("Set ELASTICSEARCH_PASSWORD to bypass the keystore.")
	}
	password, err := store.Get("elasticsearch.password")
	if err != nil {
		if errors.Is(err, keystore.ErrNoSecret) {
			return "", nil
		}
		return "", cli.Internal("reading keystore: %w", err)
	}
	return password, nil
}

// demoSnapshot generates a day of plausible-looking hourly traffic
// with a service breakdown, so the full panel is explorable offline.
func demoSnapshot() *panelui.Snapshot {
	start := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Hour)
	// A daily curve: low overnight, peaking mid-afternoon.
	shape := []int64{
		21, 14, 9, 7, 8, 12, 25, 48, 71, 89, 97, 104,
		112, 119, 123, 117, 102, 94, 85, 70, 55, 42, 33, 26,
	}

	var total int64
	buckets := make([]panelui.Bucket, len(shape))
	for hour, value := range shape {
		count := value * 7
		total += count
		buckets[hour] = panelui.Bucket{
			Start: start.Add(time.Duration(hour) * time.Hour),
			Count: count,
			Breakdown: []panelui.SeriesCount{
				{Name: "api", Count: count * 6 / 10},
				{Name: "web", Count: count * 3 / 10},
				{Name: "batch", Count: count / 10},
			},
		}
	}

	return &panelui.Snapshot{
		Total:   total,
		Buckets: buckets,
		Fields: []panelui.Field{
			{Name: "@timestamp", Type: "date", Aggregatable: true},
			{Name: "service.keyword", Type: "keyword", Aggregatable: true},
			{Name: "status.keyword", Type: "keyword", Aggregatable: true},
			{Name: "bytes", Type: "long", Aggregatable: true},
		},
		Suggestions: []panelui.Suggestion{
			{Label: "stacked by service", Kind: "bar", Breakdown: "service.keyword"},
			{Label: "stacked by status", Kind: "bar", Breakdown: "status.keyword"},
			{Label: "event volume as a line", Kind: "line"},
		},
		Took: 3 * time.Millisecond,
	}
}
