// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

// The facet-keystore command manages the age-encrypted credential
// file the viewer reads Elasticsearch passwords from. Secrets never
// touch the YAML config; the keystore holds them encrypted under a
// passphrase.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/facet-analytics/facet/lib/cli"
	"github.com/facet-analytics/facet/lib/keystore"
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
	if len(os.Args) < 2 {
		printUsage()
		return cli.Validation("subcommand required")
	}

	subcommand := os.Args[1]
	arguments := os.Args[2:]
	switch subcommand {
	case "create":
		return runCreate(arguments)
	case "set":
		return runSet(arguments)
	case "get":
		return runGet(arguments)
	case "list":
		return runList(arguments)
	case "remove":
		return runRemove(arguments)
	case "version", "--version":
		version.Print("facet-keystore")
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return cli.Validation("unknown subcommand %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: facet-keystore <subcommand> [flags]

Manages the age-encrypted credential file used by facet.

Subcommands:
  create          Create a new empty keystore
  set <key>       Store a secret (value read from stdin)
  get <key>       Print a secret to stdout
  list            List stored keys
  remove <key>    Delete a secret
  version         Print version information

The passphrase is prompted on a terminal, or read from the first
line of stdin when stdin is not a terminal (scripting).

Examples:
  facet-keystore create
  printf '%%s\n%%s\n' "$PASSPHRASE" "$PASSWORD" | facet-keystore set elasticsearch.password
`)
}

// keystoreFlags builds the shared flag set: every subcommand takes
// the keystore path.
func keystoreFlags(name string) (*pflag.FlagSet, *string) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	path := flags.String("path", defaultPath(), "keystore file")
	return flags, path
}

func defaultPath() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return configDir + "/facet/keystore.age"
	}
	return "keystore.age"
}

// parseFlags parses the subcommand arguments. done reports that the
// subcommand should exit successfully without doing work (--help).
func parseFlags(flags *pflag.FlagSet, arguments []string, positional int) (done bool, err error) {
	if err := flags.Parse(arguments); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, cli.Validation("%v", err)
	}
	if flags.NArg() != positional {
		return false, cli.Validation("expected %d argument(s), got %d", positional, flags.NArg())
	}
	return false, nil
}

// stdinLines is shared across prompts so piped input is consumed one
// line at a time: passphrase first, then the secret value for "set".
var stdinLines = bufio.NewReader(os.Stdin)

// readPassphrase prompts on the terminal without echo, or reads the
// next stdin line when stdin is piped.
func readPassphrase(prompt string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", cli.Internal("reading passphrase: %w", err)
		}
		return string(passphrase), nil
	}

	line, err := stdinLines.ReadString('\n')
	if err != nil && line == "" {
		return "", cli.Validation("reading passphrase from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecretValue reads the secret for "set": prompted without echo
// on a terminal, otherwise the stdin line after the passphrase.
func readSecretValue(key string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Value for %s: ", key)
		value, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", cli.Internal("reading value: %w", err)
		}
		return string(value), nil
	}

	line, err := stdinLines.ReadString('\n')
	if err != nil && line == "" {
		return "", cli.Validation("reading value from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func openKeystore(path string) (*keystore.Keystore, error) {
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return nil, err
	}
	store, err := keystore.Open(path, passphrase)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return nil, cli.NotFound("keystore %s does not exist", path).
				WithHint("Run 'facet-keystore create' first.")
		}
		return nil, cli.Validation("opening keystore: %w", err)
	}
	return store, nil
}

func runCreate(arguments []string) error {
	flags, path := keystoreFlags("create")
	if done, err := parseFlags(flags, arguments, 0); done || err != nil {
		return err
	}

	passphrase, err := readPassphrase("New passphrase: ")
	if err != nil {
		return err
	}
	if passphrase == "" {
		return cli.Validation("passphrase must not be empty")
	}

	store, err := keystore.Create(*path, passphrase)
	if err != nil {
		return cli.Validation("creating keystore: %w", err)
	}
	if err := store.Save(); err != nil {
		return cli.Internal("writing keystore: %w", err)
	}
	fmt.Printf("created %s\n", *path)
	return nil
}

func runSet(arguments []string) error {
	flags, path := keystoreFlags("set")
	if done, err := parseFlags(flags, arguments, 1); done || err != nil {
		return err
	}
	key := flags.Arg(0)

	store, err := openKeystore(*path)
	if err != nil {
		return err
	}
	value, err := readSecretValue(key)
	if err != nil {
		return err
	}

	store.Set(key, value)
	if err := store.Save(); err != nil {
		return cli.Internal("writing keystore: %w", err)
	}
	fmt.Fprintf(os.Stderr, "stored %s\n", key)
	return nil
}

func runGet(arguments []string) error {
	flags, path := keystoreFlags("get")
	if done, err := parseFlags(flags, arguments, 1); done || err != nil {
		return err
	}
	key := flags.Arg(0)

	store, err := openKeystore(*path)
	if err != nil {
		return err
	}
	value, err := store.Get(key)
	if err != nil {
		if errors.Is(err, keystore.ErrNoSecret) {
			return cli.NotFound("no secret %q in %s", key, *path)
		}
		return cli.Internal("reading secret: %w", err)
	}
	fmt.Println(value)
	return nil
}

func runList(arguments []string) error {
	flags, path := keystoreFlags("list")
	if done, err := parseFlags(flags, arguments, 0); done || err != nil {
		return err
	}

	store, err := openKeystore(*path)
	if err != nil {
		return err
	}
	for _, key := range store.List() {
		fmt.Println(key)
	}
	return nil
}

func runRemove(arguments []string) error {
	flags, path := keystoreFlags("remove")
	if done, err := parseFlags(flags, arguments, 1); done || err != nil {
		return err
	}
	key := flags.Arg(0)

	store, err := openKeystore(*path)
	if err != nil {
		return err
	}
	if err := store.Remove(key); err != nil {
		if errors.Is(err, keystore.ErrNoSecret) {
			return cli.NotFound("no secret %q in %s", key, *path)
		}
		return cli.Internal("removing secret: %w", err)
	}
	if err := store.Save(); err != nil {
		return cli.Internal("writing keystore: %w", err)
	}
	fmt.Fprintf(os.Stderr, "removed %s\n", key)
	return nil
}
