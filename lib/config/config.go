// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads facet settings from YAML.
//
// Settings live at a fixed location relative to the working
// directory: config/facet.yml. A development override file,
// config/facet.dev.yml, takes precedence when it exists — it is read
// instead of the production file, so a checked-out tree can carry a
// local setup without touching the production config. Only the dev
// file's absence falls back; any other failure propagates.
//
// Three environment variables overlay the Elasticsearch connection
// settings after either file is read:
//
//	ELASTICSEARCH_HOSTS     comma-separated host URLs
//	ELASTICSEARCH_USERNAME  basic auth user
//	ELASTICSEARCH_PASSWORD  basic auth password
//
// Every key has a default, so a partial file (or no file at all)
// still yields a complete Settings value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixed config file locations, relative to the working directory.
const (
	// ProductionPath is the standard settings file.
	ProductionPath = "config/facet.yml"

	// DevelopmentPath, when present, is read instead of ProductionPath.
	DevelopmentPath = "config/facet.dev.yml"
)

// Environment variables that override Elasticsearch connection
// settings. These are the only variables the loader consults
// directly; everything else comes from the file.
const (
	EnvHosts    = "ELASTICSEARCH_HOSTS"
	EnvUsername = "ELASTICSEARCH_USERNAME"
	EnvPassword = "ELASTICSEARCH_PASSWORD"
)

// Settings is the complete facet configuration.
type Settings struct {
	// Elasticsearch configures the cluster connection and the
	// default query target.
	Elasticsearch ElasticsearchSettings `yaml:"elasticsearch"`

	// UI configures viewer presentation defaults.
	UI UISettings `yaml:"ui"`

	// Telemetry configures usage reporting.
	Telemetry TelemetrySettings `yaml:"telemetry"`

	// Keystore configures the encrypted credentials file.
	Keystore KeystoreSettings `yaml:"keystore"`
}

// ElasticsearchSettings configures the cluster connection.
type ElasticsearchSettings struct {
	// Hosts are the cluster base URLs. The first reachable host wins.
	Hosts []string `yaml:"hosts"`

	// Username and Password are basic auth credentials. Password is
	// usually left empty here and supplied via ELASTICSEARCH_PASSWORD
	// or the keystore.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Index is the index or index pattern queries run against.
	Index string `yaml:"index"`

	// TimeField is the date field the histogram buckets on.
	TimeField string `yaml:"time_field"`

	// RequestTimeout bounds a single search request, in Go duration
	// syntax ("30s", "2m").
	RequestTimeout string `yaml:"request_timeout"`
}

// UISettings configures viewer presentation defaults.
type UISettings struct {
	// DefaultInterval is the initial bucket interval ("auto" or a
	// fixed interval from KnownIntervals).
	DefaultInterval string `yaml:"default_interval"`

	// DefaultChart is the initial chart kind ("bar" or "line").
	DefaultChart string `yaml:"default_chart"`

	// SavedDirectory is where saved chart definitions are stored.
	SavedDirectory string `yaml:"saved_directory"`

	// HideChart starts the panel with the chart body collapsed.
	HideChart bool `yaml:"hide_chart"`
}

// TelemetrySettings configures usage reporting.
type TelemetrySettings struct {
	// Enabled turns usage counting on. Counters stay in-process
	// unless Endpoint is also set.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the collector base URL. Empty means local-only:
	// counters are recorded but never shipped.
	Endpoint string `yaml:"endpoint"`

	// InstallIDPath is where the random install identifier lives.
	// Created on first run.
	InstallIDPath string `yaml:"install_id_path"`
}

// KeystoreSettings configures the encrypted credentials file.
type KeystoreSettings struct {
	// Path is the age-encrypted keystore location.
	Path string `yaml:"path"`
}

// KnownIntervals are the bucket intervals the viewer offers. "auto"
// picks an interval from the time range width.
var KnownIntervals = []string{"auto", "1m", "5m", "15m", "1h", "6h", "1d"}

// KnownCharts are the built-in chart kinds.
var KnownCharts = []string{"bar", "line"}

// Default returns the settings used as the base before any file is
// read. Every field is populated so a partial file produces a
// complete configuration.
func Default() *Settings {
	return &Settings{
		Elasticsearch: ElasticsearchSettings{
			Hosts:          []string{"http://localhost:9200"},
			Index:          "logs-*",
			TimeField:      "@timestamp",
			RequestTimeout: "30s",
		},
		UI: UISettings{
			DefaultInterval: "auto",
			DefaultChart:    "bar",
			SavedDirectory:  "saved",
		},
		Telemetry: TelemetrySettings{
			Enabled:       true,
			InstallIDPath: "config/install_id",
		},
		Keystore: KeystoreSettings{
			Path: "config/facet.keys",
		},
	}
}

// Load reads settings from the fixed locations: the dev file when it
// exists, the production file otherwise. When neither exists the
// defaults (plus the environment overlay) are returned — a fresh
// checkout must start without ceremony.
func Load() (*Settings, error) {
	for _, path := range []string{DevelopmentPath, ProductionPath} {
		_, err := os.Stat(path)
		if err == nil {
			return LoadFile(path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: checking %s: %w", path, err)
		}
	}

	settings := Default()
	settings.applyEnvironment()
	settings.expandVariables()
	return settings, nil
}

// LoadFile reads settings from one specific file with no fallback.
// Used by Load, tests, and the --config flag. YAML problems propagate
// as parse errors; the environment overlay and variable expansion
// still apply.
func LoadFile(path string) (*Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	settings.applyEnvironment()
	settings.expandVariables()
	return settings, nil
}

// applyEnvironment overlays the three Elasticsearch variables. Set
// and non-empty wins over whatever the file provided.
func (s *Settings) applyEnvironment() {
	if hosts := os.Getenv(EnvHosts); hosts != "" {
		s.Elasticsearch.Hosts = splitHosts(hosts)
	}
	if username := os.Getenv(EnvUsername); username != "" {
		s.Elasticsearch.Username = username
	}
	if password := os.Getenv(EnvPassword); password != "" {
		s.Elasticsearch.Password = password
	}
}

// splitHosts parses the comma-separated ELASTICSEARCH_HOSTS value,
// trimming whitespace and dropping empty entries.
func splitHosts(value string) []string {
	var hosts []string
	for _, part := range strings.Split(value, ",") {
		if host := strings.TrimSpace(part); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-like and URL-like settings. Credentials are deliberately left
// untouched: a password is opaque bytes, not a template.
func (s *Settings) expandVariables() {
	for index, host := range s.Elasticsearch.Hosts {
		s.Elasticsearch.Hosts[index] = expandVars(host)
	}
	s.Elasticsearch.Index = expandVars(s.Elasticsearch.Index)
	s.UI.SavedDirectory = expandVars(s.UI.SavedDirectory)
	s.Telemetry.Endpoint = expandVars(s.Telemetry.Endpoint)
	s.Telemetry.InstallIDPath = expandVars(s.Telemetry.InstallIDPath)
	s.Keystore.Path = expandVars(s.Keystore.Path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(value string) string {
	return varPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if env := os.Getenv(parts[1]); env != "" {
			return env
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// RequestTimeout returns the parsed request timeout. Call Validate
// first; on an unparseable value this falls back to the default.
func (s *Settings) RequestTimeout() time.Duration {
	timeout, err := time.ParseDuration(s.Elasticsearch.RequestTimeout)
	if err != nil || timeout <= 0 {
		return 30 * time.Second
	}
	return timeout
}

// Validate checks the settings, collecting every problem.
func (s *Settings) Validate() error {
	var errs []error

	if len(s.Elasticsearch.Hosts) == 0 {
		errs = append(errs, fmt.Errorf("elasticsearch.hosts must not be empty"))
	}
	for _, host := range s.Elasticsearch.Hosts {
		parsed, err := url.Parse(host)
		if err != nil {
			errs = append(errs, fmt.Errorf("elasticsearch.hosts entry %q: %w", host, err))
			continue
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errs = append(errs, fmt.Errorf("elasticsearch.hosts entry %q: scheme must be http or https", host))
		}
	}

	if s.Elasticsearch.Index == "" {
		errs = append(errs, fmt.Errorf("elasticsearch.index is required"))
	}
	if s.Elasticsearch.TimeField == "" {
		errs = append(errs, fmt.Errorf("elasticsearch.time_field is required"))
	}

	if timeout, err := time.ParseDuration(s.Elasticsearch.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("elasticsearch.request_timeout %q: %w", s.Elasticsearch.RequestTimeout, err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("elasticsearch.request_timeout must be positive"))
	}

	if !contains(KnownIntervals, s.UI.DefaultInterval) {
		errs = append(errs, fmt.Errorf("ui.default_interval must be one of: %v", KnownIntervals))
	}
	if !contains(KnownCharts, s.UI.DefaultChart) {
		errs = append(errs, fmt.Errorf("ui.default_chart must be one of: %v", KnownCharts))
	}

	if s.Telemetry.Endpoint != "" {
		parsed, err := url.Parse(s.Telemetry.Endpoint)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			errs = append(errs, fmt.Errorf("telemetry.endpoint %q must be an http(s) URL", s.Telemetry.Endpoint))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
