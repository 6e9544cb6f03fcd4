// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package saved

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// fileSuffix is appended to the chart ID to form the on-disk name.
const fileSuffix = ".facet.jsonc"

// Store reads and writes chart definitions in a single directory.
// Filenames are `<id>.facet.jsonc` where id is the content hash, so
// saving an edited chart creates a new file rather than clobbering
// the original.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store over dir, creating the directory if
// needed. A nil logger falls back to slog.Default().
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("saved: creating chart directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Chart.
func parse(data []byte) (*Chart, error) {
	stripped := jsonc.ToJSON(data)

	var chart Chart
	if err := json.Unmarshal(stripped, &chart); err != nil {
		return nil, fmt.Errorf("parsing chart: %w", err)
	}
	return &chart, nil
}

// List returns every parseable chart in the directory, sorted by
// title. Files that fail to parse are logged and skipped; one broken
// hand-edited file must not hide the rest.
func (store *Store) List() ([]*Chart, error) {
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		return nil, fmt.Errorf("saved: reading chart directory: %w", err)
	}

	var charts []*Chart
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(store.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			store.logger.Warn("skipping unreadable chart file",
				"path", path, "error", err)
			continue
		}
		chart, err := parse(data)
		if err != nil {
			store.logger.Warn("skipping unparseable chart file",
				"path", path, "error", err)
			continue
		}
		charts = append(charts, chart)
	}

	sort.Slice(charts, func(i, j int) bool {
		return charts[i].Title < charts[j].Title
	})
	return charts, nil
}

// Get loads the chart with the given content ID. Returns
// fs.ErrNotExist when no such chart is saved.
func (store *Store) Get(id string) (*Chart, error) {
	data, err := os.ReadFile(filepath.Join(store.dir, id+fileSuffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("saved: chart %s: %w", id, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("saved: reading chart %s: %w", id, err)
	}
	chart, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("saved: chart %s: %w", id, err)
	}
	return chart, nil
}

// Save validates and writes the chart, returning its content ID. The
// write is atomic: a temp file in the same directory, fsynced, then
// renamed over the target.
func (store *Store) Save(chart *Chart) (string, error) {
	if err := chart.Validate(); err != nil {
		return "", err
	}
	id, err := chart.ID()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(chart, "", "  ")
	if err != nil {
		return "", fmt.Errorf("saved: encoding chart %q: %w", chart.Title, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(store.dir, ".chart-*")
	if err != nil {
		return "", fmt.Errorf("saved: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("saved: writing chart %q: %w", chart.Title, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("saved: syncing chart %q: %w", chart.Title, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("saved: closing chart %q: %w", chart.Title, err)
	}

	target := filepath.Join(store.dir, id+fileSuffix)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("saved: installing chart %q: %w", chart.Title, err)
	}
	return id, nil
}

// Delete removes the chart with the given content ID. Deleting an
// absent chart returns fs.ErrNotExist.
func (store *Store) Delete(id string) error {
	err := os.Remove(filepath.Join(store.dir, id+fileSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("saved: chart %s: %w", id, fs.ErrNotExist)
	}
	return err
}
