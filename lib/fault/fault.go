// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault classifies the failures keytap can hit so that the
// controller and the binary can decide on cleanup and exit codes without
// parsing error text.
//
// An [Error] wraps an inner error, preserving the full chain for
// errors.Is and errors.As while carrying a [Kind]. Use the kind-specific
// constructors rather than building an Error directly.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a keytap failure.
type Kind string

const (
	// KindAllocation is a pseudo-terminal setup failure: opening the
	// master, granting or unlocking the slave, or resolving its path.
	KindAllocation Kind = "allocation"

	// KindSessionNameExhausted means every candidate session name was
	// already active.
	KindSessionNameExhausted Kind = "session_name_exhausted"

	// KindSpawn is a process creation or exec failure for the session
	// program or the companion.
	KindSpawn Kind = "spawn"

	// KindLogOpen means the keystroke log could not be opened.
	KindLogOpen Kind = "log_open"

	// KindIO is a read or write failure on standard input, standard
	// output or the pty master, excluding end-of-file and interruption.
	KindIO Kind = "io"

	// KindTerminal is a failure to read or apply a terminal mode.
	KindTerminal Kind = "terminal"

	// KindConfig is an invalid or unreadable configuration.
	KindConfig Kind = "config"
)

// Error is a classified keytap error.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Err is the underlying error with the human-readable message.
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Allocation creates a pseudo-terminal allocation error.
func Allocation(format string, args ...any) *Error {
	return &Error{Kind: KindAllocation, Err: fmt.Errorf(format, args...)}
}

// SessionNameExhausted creates a session-name exhaustion error.
func SessionNameExhausted(format string, args ...any) *Error {
	return &Error{Kind: KindSessionNameExhausted, Err: fmt.Errorf(format, args...)}
}

// Spawn creates a process spawn error.
func Spawn(format string, args ...any) *Error {
	return &Error{Kind: KindSpawn, Err: fmt.Errorf(format, args...)}
}

// LogOpen creates a keystroke-log open error.
func LogOpen(format string, args ...any) *Error {
	return &Error{Kind: KindLogOpen, Err: fmt.Errorf(format, args...)}
}

// IO creates a relay I/O error.
func IO(format string, args ...any) *Error {
	return &Error{Kind: KindIO, Err: fmt.Errorf(format, args...)}
}

// Terminal creates a terminal mode error.
func Terminal(format string, args ...any) *Error {
	return &Error{Kind: KindTerminal, Err: fmt.Errorf(format, args...)}
}

// Config creates a configuration error.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first [Error] in err's chain, and
// false if there is none.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	found, ok := KindOf(err)
	return ok && found == kind
}
