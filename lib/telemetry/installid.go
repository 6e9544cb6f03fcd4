// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreateInstallID returns the installation identifier stored at
// path, creating it on first run: 16 random bytes, hex-encoded, one
// line. The ID identifies an installation for report deduplication
// and carries no user information.
func LoadOrCreateInstallID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if decoded, decodeErr := hex.DecodeString(id); decodeErr == nil && len(decoded) == 16 {
			return id, nil
		}
		// Corrupt file: regenerate below rather than shipping reports
		// under a malformed identity.
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("telemetry: reading install ID %s: %w", path, err)
	}

	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("telemetry: generating install ID: %w", err)
	}
	id := hex.EncodeToString(raw[:])

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("telemetry: creating install ID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("telemetry: writing install ID %s: %w", path, err)
	}
	return id, nil
}
