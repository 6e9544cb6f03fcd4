// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore stores Elasticsearch credentials in a single
// passphrase-encrypted file so they stay out of the YAML config. It
// wraps filippo.io/age with a scrypt recipient and armors the output,
// keeping the file safe to commit to dotfile repos and legible as
// "this is an age file" in a text editor.
package keystore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ErrNoSecret is returned by Get for keys the keystore does not hold.
var ErrNoSecret = errors.New("keystore: no such secret")

// Keystore is an open (decrypted) secrets file. Mutations happen in
// memory; Save re-encrypts and writes the file atomically.
type Keystore struct {
	path       string
	passphrase string
	secrets    map[string]string
}

// Create makes a new empty keystore file at path. Fails if the file
// already exists.
func Create(path, passphrase string) (*Keystore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("keystore: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("keystore: checking %s: %w", path, err)
	}

	store := &Keystore{
		path:       path,
		passphrase: passphrase,
		secrets:    make(map[string]string),
	}
	if err := store.Save(); err != nil {
		return nil, err
	}
	return store, nil
}

// Open decrypts the keystore file at path with the given passphrase.
func Open(path, passphrase string) (*Keystore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: opening %s: %w", path, err)
	}
	defer file.Close()

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("keystore: preparing passphrase: %w", err)
	}

	reader, err := age.Decrypt(armor.NewReader(file), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("keystore: wrong passphrase for %s", path)
		}
		return nil, fmt.Errorf("keystore: decrypting %s: %w", path, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("keystore: reading %s: %w", path, err)
	}

	secrets := make(map[string]string)
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("keystore: parsing %s: %w", path, err)
	}

	return &Keystore{
		path:       path,
		passphrase: passphrase,
		secrets:    secrets,
	}, nil
}

// Set stores a secret under key, replacing any existing value.
func (store *Keystore) Set(key, value string) {
	store.secrets[key] = value
}

// Get returns the secret stored under key, or ErrNoSecret.
func (store *Keystore) Get(key string) (string, error) {
	value, ok := store.secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSecret, key)
	}
	return value, nil
}

// Remove deletes the secret stored under key. Removing an absent key
// returns ErrNoSecret.
func (store *Keystore) Remove(key string) error {
	if _, ok := store.secrets[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSecret, key)
	}
	delete(store.secrets, key)
	return nil
}

// List returns the stored keys in sorted order. Values are never
// listed.
func (store *Keystore) List() []string {
	keys := make([]string, 0, len(store.secrets))
	for key := range store.secrets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Save re-encrypts the secrets and writes the file atomically with
// 0600 permissions: temp file in the same directory, then rename.
func (store *Keystore) Save() error {
	plaintext, err := json.Marshal(store.secrets)
	if err != nil {
		return fmt.Errorf("keystore: encoding secrets: %w", err)
	}

	recipient, err := age.NewScryptRecipient(store.passphrase)
	if err != nil {
		return fmt.Errorf("keystore: preparing passphrase: %w", err)
	}

	var encrypted bytes.Buffer
	armorWriter := armor.NewWriter(&encrypted)
	writer, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		return fmt.Errorf("keystore: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("keystore: encrypting secrets: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("keystore: finalizing encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return fmt.Errorf("keystore: finalizing armor: %w", err)
	}

	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("keystore: creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return fmt.Errorf("keystore: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: restricting temp file: %w", err)
	}
	if _, err := tmp.Write(encrypted.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: writing %s: %w", store.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: syncing %s: %w", store.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keystore: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), store.path); err != nil {
		return fmt.Errorf("keystore: installing %s: %w", store.path, err)
	}
	return nil
}
