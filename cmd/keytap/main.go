// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// keytap runs a terminal session (tmux by default) on a pseudo-terminal
// and records every keystroke, with cursor and editing keys rewritten as
// readable labels, to an append-only log.
//
// Usage:
//
//	keytap [run] [flags] [-- <program> [args...]]
//	keytap show [flags]
//	keytap version
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bureau-foundation/keytap/lib/process"
	"github.com/bureau-foundation/keytap/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	command := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "run":
		return runCmd(args)
	case "show":
		return showCmd(args, stdout)
	case "version", "--version":
		fmt.Fprintf(stdout, "keytap %s\n", version.Info())
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `keytap - record keystrokes typed into a terminal session

USAGE
    keytap [run] [flags] [-- <program> [args...]]
    keytap show [flags]
    keytap version

COMMANDS
    run       Start (or reattach) a session and record keystrokes (default)
    show      Print the keystroke log
    version   Show version

EXAMPLES
    # Record into the first free tmux session among ws-1..ws-9
    keytap

    # Record a plain shell instead of tmux
    keytap -- bash --login

    # Replay the line currently being typed
    keytap show --line

ENVIRONMENT
    KEYTAP_CONFIG    Path to the YAML configuration file
    KEYTAP_SESSION   Set in the session to the chosen session name
    TMUX_SESSION     Set in the companion to the chosen session name

Run "keytap run --help" or "keytap show --help" for flags.
`)
}
